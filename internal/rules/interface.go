package rules

import (
	"context"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// Source supplies the enabled automation rules scoped to one workspace and
// (optionally) one agent, in creation order.
type Source interface {
	LoadEnabledRules(ctx context.Context, workspaceID, agentID string) ([]models.AutomationRule, error)
}
