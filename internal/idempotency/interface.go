package idempotency

import "context"

// Claimer is the atomic first-writer-wins marker preventing duplicate
// dispatch for the same rule/event pair. TryClaim returns false when the
// pair was already claimed; an error means the claim store is unreachable.
type Claimer interface {
	TryClaim(ctx context.Context, ruleID, externalEventID string) (bool, error)
}
