package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/audit"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/channels"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/genai"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/idempotency"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/rules"
)

// Adapters groups the channel collaborators the dispatcher delivers through.
// A nil adapter makes actions of that kind fail with a reported outcome, not
// an engine error.
type Adapters struct {
	DirectMessenger channels.DirectMessenger
	PublicReplier   channels.PublicReplier
	EmailSender     channels.EmailSender
	WebhookCaller   channels.WebhookCaller
}

// Options configures evaluation policy.
type Options struct {
	// MaxConcurrentRules bounds the per-event rule fan-out.
	MaxConcurrentRules int
	// FirstMatchOnly makes evaluation stop after the first matching rule.
	// Default is all matching rules fire independently.
	FirstMatchOnly bool
	// GenerationTimeout bounds each call to the text generator.
	GenerationTimeout time.Duration
	// ScheduleWindow is how far back a schedule occurrence may lie and still
	// count as due. Deployments set it to the sweep interval so occurrences
	// never fall between sweeps.
	ScheduleWindow time.Duration
	// DefaultReply is the neutral acknowledgment used when generation fails
	// and no template exists.
	DefaultReply string
}

func (o *Options) applyDefaults() {
	if o.MaxConcurrentRules < 1 {
		o.MaxConcurrentRules = 4
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = 8 * time.Second
	}
	if o.ScheduleWindow <= 0 {
		o.ScheduleWindow = defaultScheduleWindow
	}
	if o.DefaultReply == "" {
		o.DefaultReply = "Thanks for reaching out! We'll get back to you shortly."
	}
}

// Engine evaluates one inbound event against the workspace's automation
// rules and executes the configured actions.
type Engine struct {
	rules           rules.Source
	claims          idempotency.Claimer
	generator       genai.Generator
	directMessenger channels.DirectMessenger
	publicReplier   channels.PublicReplier
	emailSender     channels.EmailSender
	webhookCaller   channels.WebhookCaller
	sink            audit.Sink
	limiter         Limiter
	opts            Options

	metrics *Metrics

	// sleep is the delay coordinator; injectable so tests do not wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine. sink may not be nil; pass audit.NopSink{} to
// discard. limiter may be nil to disable throttling.
func New(source rules.Source, claims idempotency.Claimer, generator genai.Generator, adapters Adapters, sink audit.Sink, limiter Limiter, opts Options) *Engine {
	opts.applyDefaults()
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &Engine{
		rules:           source,
		claims:          claims,
		generator:       generator,
		directMessenger: adapters.DirectMessenger,
		publicReplier:   adapters.PublicReplier,
		emailSender:     adapters.EmailSender,
		webhookCaller:   adapters.WebhookCaller,
		sink:            sink,
		limiter:         limiter,
		opts:            opts,
		metrics:         newMetrics(),
		sleep:           sleepContext,
	}
}

// Evaluate runs one event through every candidate rule and reports what
// happened. Only a rule-source or claim-store failure makes the result not
// OK; everything downstream degrades into per-rule outcomes.
func (e *Engine) Evaluate(ctx context.Context, event models.Event) *models.ExecutionResult {
	start := time.Now()
	result := &models.ExecutionResult{
		ID:          uuid.NewString(),
		OK:          true,
		EvaluatedAt: start,
	}

	log := logrus.WithFields(logrus.Fields{
		"workspace_id": event.WorkspaceID,
		"event_id":     event.ExternalEventID,
		"platform":     event.Platform,
	})
	log.Info("Evaluating event")

	ruleSet, err := e.rules.LoadEnabledRules(ctx, event.WorkspaceID, event.AgentID)
	if err != nil {
		log.Errorf("Failed to load rules: %v", err)
		result.OK = false
		result.Error = fmt.Sprintf("failed to load rules: %v", err)
		e.finish(result, start)
		return result
	}

	if len(ruleSet) == 0 {
		log.Debug("No enabled rules for workspace")
		e.finish(result, start)
		return result
	}

	var outcomes []models.RuleOutcome
	var fatal error
	if e.opts.FirstMatchOnly {
		outcomes, fatal = e.evaluateSequential(ctx, ruleSet, event)
	} else {
		outcomes, fatal = e.evaluateConcurrent(ctx, ruleSet, event)
	}

	result.Rules = outcomes
	if fatal != nil {
		result.OK = false
		result.Error = fatal.Error()
	}

	aggregate(result)
	e.finish(result, start)

	log.WithFields(logrus.Fields{
		"matched":  result.Matched,
		"rules":    len(result.Rules),
		"ok":       result.OK,
		"duration": result.Duration,
	}).Info("Evaluation finished")

	return result
}

// RunRule executes one specific rule against event, treating the invocation
// itself as the trigger. Used by the manual-trigger entry point.
func (e *Engine) RunRule(ctx context.Context, ruleID string, event models.Event) *models.ExecutionResult {
	start := time.Now()
	result := &models.ExecutionResult{
		ID:          uuid.NewString(),
		OK:          true,
		EvaluatedAt: start,
	}

	ruleSet, err := e.rules.LoadEnabledRules(ctx, event.WorkspaceID, event.AgentID)
	if err != nil {
		result.OK = false
		result.Error = fmt.Sprintf("failed to load rules: %v", err)
		e.finish(result, start)
		return result
	}

	found := false
	for _, rule := range ruleSet {
		if rule.ID != ruleID {
			continue
		}
		found = true

		outcome, claimErr := e.evaluateRule(ctx, rule, event, true)
		result.Rules = append(result.Rules, outcome)
		if claimErr != nil {
			result.OK = false
			result.Error = claimErr.Error()
		}
		break
	}

	if !found {
		result.OK = false
		result.Error = fmt.Sprintf("rule %s not found or not enabled", ruleID)
	}

	aggregate(result)
	e.finish(result, start)
	return result
}

func (e *Engine) evaluateConcurrent(ctx context.Context, ruleSet []models.AutomationRule, event models.Event) ([]models.RuleOutcome, error) {
	outcomes := make([]models.RuleOutcome, len(ruleSet))

	var g errgroup.Group
	g.SetLimit(e.opts.MaxConcurrentRules)

	for i, rule := range ruleSet {
		i, rule := i, rule
		g.Go(func() error {
			outcome, claimErr := e.evaluateRule(ctx, rule, event, false)
			outcomes[i] = outcome
			return claimErr
		})
	}

	// A claim-store failure is the only error a pipeline returns; siblings
	// still run to completion and their outcomes are reported.
	fatal := g.Wait()
	return outcomes, fatal
}

func (e *Engine) evaluateSequential(ctx context.Context, ruleSet []models.AutomationRule, event models.Event) ([]models.RuleOutcome, error) {
	var outcomes []models.RuleOutcome

	for _, rule := range ruleSet {
		outcome, claimErr := e.evaluateRule(ctx, rule, event, false)
		outcomes = append(outcomes, outcome)
		if claimErr != nil {
			return outcomes, claimErr
		}
		if outcome.Matched {
			// First-match policy: later rules are not evaluated at all.
			break
		}
	}

	return outcomes, nil
}

// evaluateRule walks one rule's pipeline: match, veto, claim, rate limit,
// delay, generate, dispatch. The returned error is non-nil only when the
// claim store is unreachable.
func (e *Engine) evaluateRule(ctx context.Context, rule models.AutomationRule, event models.Event, force bool) (models.RuleOutcome, error) {
	outcome := models.RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}

	if !rule.Enabled {
		// The rule source must not hand these out; treat as no match.
		return outcome, nil
	}

	if !force && !MatchTrigger(rule, event, time.Now(), e.opts.ScheduleWindow) {
		return outcome, nil
	}

	if reason := vetoReason(rule, event); reason != "" {
		outcome.SkipReason = reason
		return outcome, nil
	}

	outcome.Matched = true

	claimed, err := e.claims.TryClaim(ctx, rule.ID, event.ExternalEventID)
	if err != nil {
		outcome.Error = fmt.Sprintf("claim store unavailable: %v", err)
		return outcome, fmt.Errorf("claim store unavailable: %w", err)
	}
	if !claimed {
		outcome.SkipReason = "already processed"
		return outcome, nil
	}

	// Consulted after the claim: Allow records a hit, and a redelivered
	// duplicate must not burn rate budget on its way to "already processed".
	if e.limiter != nil && !e.limiter.Allow(event.WorkspaceID) {
		outcome.SkipReason = "rate limited"
		return outcome, nil
	}

	if err := e.sleep(ctx, time.Duration(rule.DelaySeconds)*time.Second); err != nil {
		outcome.Error = "evaluation canceled before dispatch"
		return outcome, nil
	}

	outcome.Actions = e.dispatchActions(ctx, rule, event)
	for _, action := range outcome.Actions {
		if action.Attempted {
			outcome.ActionsAttempted++
		}
		if action.Success {
			outcome.ActionsSucceeded++
		}
	}

	logrus.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"rule_name": rule.Name,
		"attempted": outcome.ActionsAttempted,
		"succeeded": outcome.ActionsSucceeded,
	}).Info("Rule fired")

	return outcome, nil
}

// aggregate computes the result's convenience flags from per-rule outcomes.
func aggregate(result *models.ExecutionResult) {
	for _, rule := range result.Rules {
		if rule.Matched {
			result.Matched = true
		}
		for _, action := range rule.Actions {
			if !action.Success {
				continue
			}
			switch action.Kind {
			case models.ActionDirectMessage:
				result.AnyDMSent = true
			case models.ActionPublicReply:
				result.AnyReplySent = true
			case models.ActionEmail:
				result.AnyEmailSent = true
			case models.ActionWebhook:
				result.AnyWebhookCalled = true
			}
		}
	}
}

func (e *Engine) finish(result *models.ExecutionResult, start time.Time) {
	result.Duration = time.Since(start).String()
	e.metrics.observe(result)
	e.sink.Record(result)
}
