package idempotency

import (
	"context"
	"sync"
)

// MemoryClaimer is an in-process claim store for tests and single-instance
// deployments. The mutex gives the same first-writer-wins semantics as the
// blob-backed claimer, but only within one process.
type MemoryClaimer struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

// Ensure MemoryClaimer implements Claimer
var _ Claimer = (*MemoryClaimer)(nil)

// NewMemoryClaimer creates an empty in-memory claim store
func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{claims: make(map[string]struct{})}
}

// TryClaim atomically claims the (ruleID, externalEventID) pair
func (c *MemoryClaimer) TryClaim(ctx context.Context, ruleID, externalEventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := ruleID + "/" + externalEventID

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.claims[key]; exists {
		return false, nil
	}
	c.claims[key] = struct{}{}
	return true, nil
}
