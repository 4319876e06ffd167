package rules

import (
	"context"
	"sync"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// MemorySource is an in-memory rule source for tests and single-process
// deployments without blob storage.
type MemorySource struct {
	mu    sync.RWMutex
	rules []models.AutomationRule
}

// Ensure MemorySource implements Source
var _ Source = (*MemorySource)(nil)

// NewMemorySource creates a rule source holding the given rules
func NewMemorySource(ruleSet ...models.AutomationRule) *MemorySource {
	return &MemorySource{rules: ruleSet}
}

// Put adds or replaces a rule
func (s *MemorySource) Put(rule models.AutomationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == rule.ID {
			s.rules[i] = rule
			return
		}
	}
	s.rules = append(s.rules, rule)
}

// LoadEnabledRules returns the enabled rules for workspaceID in creation order
func (s *MemorySource) LoadEnabledRules(ctx context.Context, workspaceID, agentID string) ([]models.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loaded []models.AutomationRule
	for _, rule := range s.rules {
		if !rule.Enabled || rule.WorkspaceID != workspaceID {
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
