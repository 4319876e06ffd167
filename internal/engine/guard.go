package engine

import (
	"strings"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// vetoReason returns a non-empty reason when rule must not fire for event
// even though its trigger matched. Skip keywords take precedence over
// trigger keywords. The idempotency claim is a separate, atomic step taken
// by the orchestrator immediately before dispatch.
func vetoReason(rule models.AutomationRule, event models.Event) string {
	if !rule.Enabled {
		return "rule disabled"
	}

	text := strings.ToLower(event.Text)
	for _, keyword := range rule.SkipKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(text, keyword) {
			return "skip keyword matched: " + keyword
		}
	}

	return ""
}
