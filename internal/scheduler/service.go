package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/engine"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/rules"
)

// Service periodically sweeps time-triggered rules and feeds due occurrences
// into the engine as synthetic scheduled events. The external event id is
// derived from the occurrence time, so the idempotency claim guarantees each
// occurrence fires at most once even with multiple sweeper instances.
type Service struct {
	engine     *engine.Engine
	source     rules.Source
	workspaces []string
	interval   time.Duration
	cron       *cron.Cron
}

// NewService creates a sweeper over the given workspaces
func NewService(eng *engine.Engine, source rules.Source, workspaces []string, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		engine:     eng,
		source:     source,
		workspaces: workspaces,
		interval:   interval,
		cron:       cron.New(),
	}
}

// Start begins the periodic sweep
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", int(s.interval.Seconds())), func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Time-trigger sweeper started for %d workspaces (every %v)", len(s.workspaces), s.interval)
	return nil
}

// Stop stops the sweeper
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Time-trigger sweeper stopped")
	}
}

// Sweep evaluates every due time rule once. Exported so the manual trigger
// endpoint and tests can run a sweep on demand.
func (s *Service) Sweep(ctx context.Context) {
	now := time.Now()

	for _, workspaceID := range s.workspaces {
		ruleSet, err := s.source.LoadEnabledRules(ctx, workspaceID, "")
		if err != nil {
			logrus.Errorf("Sweep failed to load rules for workspace %s: %v", workspaceID, err)
			continue
		}

		for _, rule := range ruleSet {
			if rule.TriggerKind != models.TriggerTime {
				continue
			}

			lastFired := time.Time{}
			if rule.LastFiredAt != nil {
				lastFired = *rule.LastFiredAt
			}

			// The sweep interval is the back-fire window: any occurrence
			// since the previous sweep is still due on this one.
			occurrence, due := engine.ScheduleDue(rule.Schedule, now, lastFired, s.interval)
			if !due {
				continue
			}

			event := models.Event{
				WorkspaceID:     workspaceID,
				AgentID:         rule.AgentID,
				ExternalEventID: fmt.Sprintf("sched-%s-%d", rule.ID, occurrence.Unix()),
				Platform:        models.PlatformScheduled,
			}

			logrus.WithFields(logrus.Fields{
				"rule_id":      rule.ID,
				"workspace_id": workspaceID,
				"occurrence":   occurrence.Format(time.RFC3339),
			}).Info("Dispatching scheduled rule")

			result := s.engine.Evaluate(ctx, event)
			if !result.OK {
				logrus.Errorf("Scheduled evaluation for rule %s failed: %s", rule.ID, result.Error)
			}
		}
	}
}
