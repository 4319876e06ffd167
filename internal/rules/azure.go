package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// AzureSource reads automation rule documents from Azure Blob Storage. The
// management surface writes one JSON document per rule under
// <workspaceID>/<ruleID>.json; this source only reads them.
type AzureSource struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureSource implements Source
var _ Source = (*AzureSource)(nil)

// NewAzureSource creates a rule source backed by Azure Blob Storage using
// managed identity
func NewAzureSource(accountName, containerName string) (*AzureSource, error) {
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

	source := &AzureSource{
		client:        client,
		containerName: containerName,
	}

	if err := source.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return source, nil
}

func (s *AzureSource) ensureContainer() error {
	ctx := context.Background()

	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", s.containerName)
	} else {
		logrus.Infof("Created container %s", s.containerName)
	}

	return nil
}

// LoadEnabledRules returns the enabled rules for workspaceID, filtered to
// agentID when the rule is agent-scoped, ordered by creation time
func (s *AzureSource) LoadEnabledRules(ctx context.Context, workspaceID, agentID string) ([]models.AutomationRule, error) {
	prefix := workspaceID + "/"

	var names []string
	pager := s.client.NewListBlobsFlatPager(s.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list rule documents: %w", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	var loaded []models.AutomationRule
	for _, name := range names {
		rule, err := s.readRule(ctx, name)
		if err != nil {
			// A single corrupt document must not hide the rest of the
			// workspace's rules.
			logrus.Warnf("Skipping unreadable rule document %s: %v", name, err)
			continue
		}

		if !rule.Enabled {
			continue
		}
		if rule.AgentID != "" && agentID != "" && rule.AgentID != agentID {
			continue
		}

		loaded = append(loaded, rule)
	}

	sortByCreation(loaded)
	return loaded, nil
}

func (s *AzureSource) readRule(ctx context.Context, name string) (models.AutomationRule, error) {
	var rule models.AutomationRule

	response, err := s.client.DownloadStream(ctx, s.containerName, name, nil)
	if err != nil {
		return rule, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return rule, fmt.Errorf("failed to read blob content: %w", err)
	}

	if err := json.Unmarshal(data, &rule); err != nil {
		return rule, fmt.Errorf("failed to unmarshal rule: %w", err)
	}

	return rule, nil
}

// sortByCreation orders rules deterministically: creation time, then ID.
func sortByCreation(ruleSet []models.AutomationRule) {
	sort.SliceStable(ruleSet, func(i, j int) bool {
		if !ruleSet[i].CreatedAt.Equal(ruleSet[j].CreatedAt) {
			return ruleSet[i].CreatedAt.Before(ruleSet[j].CreatedAt)
		}
		return ruleSet[i].ID < ruleSet[j].ID
	})
}
