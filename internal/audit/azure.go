package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// AzureSink stores execution results as timestamped JSON blobs. Writes run
// in a goroutine and failures are logged only; audit problems must never
// surface in the evaluation path.
type AzureSink struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureSink implements Sink
var _ Sink = (*AzureSink)(nil)

// NewAzureSink creates an audit sink backed by Azure Blob Storage using
// managed identity
func NewAzureSink(accountName, containerName string) (*AzureSink, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	sink := &AzureSink{
		client:        client,
		containerName: containerName,
	}

	if err := sink.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return sink, nil
}

func (s *AzureSink) ensureContainer() error {
	ctx := context.Background()

	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", s.containerName)
	}

	return nil
}

// Record stores the result asynchronously
func (s *AzureSink) Record(result *models.ExecutionResult) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Audit record panicked: %v", r)
			}
		}()

		data, err := json.Marshal(result)
		if err != nil {
			logrus.Errorf("Failed to marshal execution result %s: %v", result.ID, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		name := fmt.Sprintf("executions/%s-%s.json", time.Now().UTC().Format("2006-01-02-15-04-05"), result.ID)
		_, err = s.client.UploadBuffer(ctx, s.containerName, name, data, nil)
		if err != nil {
			logrus.Errorf("Failed to store audit record %s: %v", name, err)
			return
		}

		logrus.Debugf("Stored audit record %s", name)
	}()
}

// NopSink discards execution results
type NopSink struct{}

// Ensure NopSink implements Sink
var _ Sink = (*NopSink)(nil)

// Record does nothing
func (NopSink) Record(result *models.ExecutionResult) {}
