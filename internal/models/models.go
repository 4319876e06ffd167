package models

import "time"

// TriggerKind identifies the condition category that activates a rule.
type TriggerKind string

const (
	TriggerComment TriggerKind = "comment"
	TriggerKeyword TriggerKind = "keyword"
	TriggerTime    TriggerKind = "time"
	TriggerManual  TriggerKind = "manual"
)

// ActionKind identifies the delivery channel of a configured action.
type ActionKind string

const (
	ActionDirectMessage ActionKind = "direct_message"
	ActionPublicReply   ActionKind = "public_reply"
	ActionEmail         ActionKind = "email"
	ActionWebhook       ActionKind = "webhook"
)

// Platform values match the trigger_platforms vocabulary. PlatformManual and
// PlatformScheduled are synthetic values used for non-comment triggers.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformWebsite   = "website"
	PlatformManual    = "manual"
	PlatformScheduled = "scheduled"
)

// Schedule describes when a time-triggered rule is due: either a one-time
// timestamp or a cron recurrence evaluated in Timezone.
type Schedule struct {
	At       *time.Time `json:"at,omitempty"`
	Cron     string     `json:"cron,omitempty"`
	Timezone string     `json:"timezone,omitempty"`
}

// ActionConfig configures one action on a rule. Fields are used per Kind:
// Template for direct messages and public replies; Recipients,
// SubjectTemplate, BodyTemplate and UseGeneratedBody for email; URL, Method,
// Headers and BodyTemplate for webhooks.
type ActionConfig struct {
	Kind             ActionKind        `json:"kind"`
	Enabled          bool              `json:"enabled"`
	Template         string            `json:"template,omitempty"`
	Recipients       []string          `json:"recipients,omitempty"`
	SubjectTemplate  string            `json:"subject_template,omitempty"`
	BodyTemplate     string            `json:"body_template,omitempty"`
	UseGeneratedBody bool              `json:"use_generated_body,omitempty"`
	URL              string            `json:"url,omitempty"`
	Method           string            `json:"method,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"`
}

// AutomationRule maps a trigger condition to one or more channel actions.
// Rules are created and edited by the operator through the management
// surface; the engine only reads them.
type AutomationRule struct {
	ID               string         `json:"id"`
	WorkspaceID      string         `json:"workspace_id"`
	AgentID          string         `json:"agent_id,omitempty"`
	Name             string         `json:"name"`
	Enabled          bool           `json:"enabled"`
	TriggerKind      TriggerKind    `json:"trigger_kind"`
	TriggerKeywords  []string       `json:"trigger_keywords,omitempty"`
	TriggerPlatforms []string       `json:"trigger_platforms,omitempty"`
	SkipKeywords     []string       `json:"skip_keywords,omitempty"`
	Schedule         *Schedule      `json:"schedule,omitempty"`
	DelaySeconds     int            `json:"delay_seconds"`
	Actions          []ActionConfig `json:"actions"`
	CreatedAt        time.Time      `json:"created_at"`

	// LastFiredAt is external state supplied by the rule source; the time
	// matcher reads it but never mutates it.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// Event is the unit of work presented to the engine. It is constructed per
// invocation and never persisted by the engine itself.
type Event struct {
	WorkspaceID     string `json:"workspace_id"`
	AgentID         string `json:"agent_id,omitempty"`
	ExternalEventID string `json:"external_event_id"`
	Text            string `json:"text"`
	AuthorID        string `json:"author_id,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	Platform        string `json:"platform"`
	PostID          string `json:"post_id,omitempty"`
}

// ActionOutcome reports one channel attempt for one configured action.
type ActionOutcome struct {
	Kind       ActionKind `json:"kind"`
	Attempted  bool       `json:"attempted"`
	Success    bool       `json:"success"`
	Skipped    bool       `json:"skipped,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	ProviderID string     `json:"provider_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RuleOutcome reports what one rule did for one event.
type RuleOutcome struct {
	RuleID           string          `json:"rule_id"`
	RuleName         string          `json:"rule_name,omitempty"`
	Matched          bool            `json:"matched"`
	SkipReason       string          `json:"skip_reason,omitempty"`
	ActionsAttempted int             `json:"actions_attempted"`
	ActionsSucceeded int             `json:"actions_succeeded"`
	Actions          []ActionOutcome `json:"actions,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// ExecutionResult is the engine's sole return value for one event.
type ExecutionResult struct {
	ID               string        `json:"id"`
	OK               bool          `json:"ok"`
	Matched          bool          `json:"matched"`
	Error            string        `json:"error,omitempty"`
	Rules            []RuleOutcome `json:"rules"`
	AnyDMSent        bool          `json:"any_dm_sent"`
	AnyReplySent     bool          `json:"any_reply_sent"`
	AnyEmailSent     bool          `json:"any_email_sent"`
	AnyWebhookCalled bool          `json:"any_webhook_called"`
	EvaluatedAt      time.Time     `json:"evaluated_at"`
	Duration         string        `json:"duration"`
}
