package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// Metrics holds engine counters
type Metrics struct {
	mu sync.RWMutex

	EventsEvaluated  int            `json:"events_evaluated"`
	RulesMatched     int            `json:"rules_matched"`
	ActionsSucceeded map[string]int `json:"actions_succeeded"`
	ActionsFailed    map[string]int `json:"actions_failed"`
	LastEvaluation   time.Time      `json:"last_evaluation"`
	LastDuration     string         `json:"last_duration"`
	ErrorCount       int            `json:"error_count"`
}

func newMetrics() *Metrics {
	return &Metrics{
		ActionsSucceeded: make(map[string]int),
		ActionsFailed:    make(map[string]int),
	}
}

func (m *Metrics) observe(result *models.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EventsEvaluated++
	m.LastEvaluation = result.EvaluatedAt
	m.LastDuration = result.Duration
	if !result.OK {
		m.ErrorCount++
	}

	for _, rule := range result.Rules {
		if rule.Matched {
			m.RulesMatched++
		}
		for _, action := range rule.Actions {
			if !action.Attempted {
				continue
			}
			if action.Success {
				m.ActionsSucceeded[string(action.Kind)]++
			} else {
				m.ActionsFailed[string(action.Kind)]++
			}
		}
	}
}

// GetMetrics returns current metrics as JSON
func (e *Engine) GetMetrics() string {
	e.metrics.mu.RLock()
	defer e.metrics.mu.RUnlock()

	data, _ := json.MarshalIndent(e.metrics, "", "  ")
	return string(data)
}
