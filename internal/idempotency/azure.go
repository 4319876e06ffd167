package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/sirupsen/logrus"
)

// AzureClaimer records dispatch claims as blobs named <ruleID>/<eventID>.
// The claim is a conditional create (If-None-Match: *): exactly one of any
// number of concurrent writers succeeds, which is what makes the engine safe
// to run as multiple instances.
type AzureClaimer struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureClaimer implements Claimer
var _ Claimer = (*AzureClaimer)(nil)

// NewAzureClaimer creates a claim store backed by Azure Blob Storage using
// managed identity
func NewAzureClaimer(accountName, containerName string) (*AzureClaimer, error) {
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

	claimer := &AzureClaimer{
		client:        client,
		containerName: containerName,
	}

	if err := claimer.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return claimer, nil
}

func (c *AzureClaimer) ensureContainer() error {
	ctx := context.Background()

	_, err := c.client.CreateContainer(ctx, c.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", c.containerName)
	}

	return nil
}

// TryClaim atomically claims the (ruleID, externalEventID) pair. Returns
// false when another evaluation already holds the claim.
func (c *AzureClaimer) TryClaim(ctx context.Context, ruleID, externalEventID string) (bool, error) {
	name := fmt.Sprintf("%s/%s", ruleID, externalEventID)
	payload := []byte(time.Now().UTC().Format(time.RFC3339))
	etagAny := azcore.ETagAny

	_, err := c.client.UploadBuffer(ctx, c.containerName, name, payload, &azblob.UploadBufferOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: &etagAny,
			},
		},
	})

	if err != nil {
		if strings.Contains(err.Error(), "BlobAlreadyExists") || strings.Contains(err.Error(), "ConditionNotMet") {
			return false, nil
		}
		return false, fmt.Errorf("failed to write claim %s: %w", name, err)
	}

	return true, nil
}
