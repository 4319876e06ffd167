package audit

import "github.com/wisemantransports-ux/retail-assist-sub007/internal/models"

// Sink records execution results for the operator's audit trail.
// Recording is fire-and-forget: implementations must never let a failure
// reach the evaluation path.
type Sink interface {
	Record(result *models.ExecutionResult)
}
