package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/audit"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/channels"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/idempotency"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
	"github.com/wisemantransports-ux/retail-assist-sub007/internal/rules"
)

// MockDirectMessenger is a mock implementation of the direct message channel
type MockDirectMessenger struct {
	mock.Mock
}

func (m *MockDirectMessenger) SendDirectMessage(ctx context.Context, platform, recipientID, text string) (string, error) {
	args := m.Called(platform, recipientID, text)
	return args.String(0), args.Error(1)
}

// MockPublicReplier is a mock implementation of the public reply channel
type MockPublicReplier struct {
	mock.Mock
}

func (m *MockPublicReplier) SendPublicReply(ctx context.Context, platform, postID, text string) (string, error) {
	args := m.Called(platform, postID, text)
	return args.String(0), args.Error(1)
}

// MockEmailSender is a mock implementation of the email channel
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	args := m.Called(recipients, subject, body)
	return args.Error(0)
}

// MockWebhookCaller is a mock implementation of the webhook channel
type MockWebhookCaller struct {
	mock.Mock
}

func (m *MockWebhookCaller) CallWebhook(ctx context.Context, method, url string, headers map[string]string, body string) error {
	args := m.Called(method, url, headers, body)
	return args.Error(0)
}

// MockGenerator is a mock implementation of the text generation service
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	args := m.Called(systemPrompt, userText)
	return args.String(0), args.Error(1)
}

type failingSource struct{}

func (failingSource) LoadEnabledRules(ctx context.Context, workspaceID, agentID string) ([]models.AutomationRule, error) {
	return nil, fmt.Errorf("configuration store unreachable")
}

type failingClaimer struct{}

func (failingClaimer) TryClaim(ctx context.Context, ruleID, externalEventID string) (bool, error) {
	return false, fmt.Errorf("claim store unreachable")
}

func newTestEngine(source rules.Source, claims idempotency.Claimer, adapters Adapters, opts Options) *Engine {
	eng := New(source, claims, nil, adapters, audit.NopSink{}, nil, opts)
	// Tests should not wait out configured delays.
	eng.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return eng
}

func commentRule(id string) models.AutomationRule {
	return models.AutomationRule{
		ID:               id,
		WorkspaceID:      "ws1",
		Name:             "thank fans",
		Enabled:          true,
		TriggerKind:      models.TriggerComment,
		TriggerKeywords:  []string{"amazing", "love"},
		TriggerPlatforms: []string{"facebook"},
		Actions: []models.ActionConfig{
			{Kind: models.ActionDirectMessage, Enabled: true, Template: "Thanks {name}!"},
		},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func commentEvent(externalID string) models.Event {
	return models.Event{
		WorkspaceID:     "ws1",
		ExternalEventID: externalID,
		Text:            "This is amazing!",
		AuthorID:        "u1",
		AuthorName:      "Jo",
		Platform:        "facebook",
	}
}

func TestEvaluate_CommentMatchSendsDM(t *testing.T) {
	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil).Once()

	eng := newTestEngine(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-1"))

	assert.True(t, result.OK)
	assert.True(t, result.Matched)
	assert.True(t, result.AnyDMSent)
	assert.Len(t, result.Rules, 1)
	assert.Equal(t, 1, result.Rules[0].ActionsAttempted)
	assert.Equal(t, 1, result.Rules[0].ActionsSucceeded)
	assert.Equal(t, "mid-1", result.Rules[0].Actions[0].ProviderID)
	mockDM.AssertExpectations(t)
}

func TestEvaluate_PlatformMismatch(t *testing.T) {
	mockDM := &MockDirectMessenger{}

	eng := newTestEngine(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	event := commentEvent("evt-2")
	event.Platform = "instagram"

	result := eng.Evaluate(context.Background(), event)

	assert.True(t, result.OK)
	assert.False(t, result.Matched)
	assert.False(t, result.AnyDMSent)
	mockDM.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_DisabledRuleNeverMatches(t *testing.T) {
	rule := commentRule("r1")
	rule.Enabled = false

	mockDM := &MockDirectMessenger{}

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-3"))

	assert.True(t, result.OK)
	assert.False(t, result.Matched)
	mockDM.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_SkipKeywordPrecedence(t *testing.T) {
	rule := commentRule("r1")
	rule.SkipKeywords = []string{"stop"}

	mockDM := &MockDirectMessenger{}

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	event := commentEvent("evt-4")
	event.Text = "This is amazing but please STOP messaging me"

	result := eng.Evaluate(context.Background(), event)

	assert.True(t, result.OK)
	assert.False(t, result.Matched)
	assert.Contains(t, result.Rules[0].SkipReason, "skip keyword")
	mockDM.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_SecondEvaluationIsIdempotent(t *testing.T) {
	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := newTestEngine(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	first := eng.Evaluate(context.Background(), commentEvent("evt-5"))
	second := eng.Evaluate(context.Background(), commentEvent("evt-5"))

	assert.Equal(t, 1, first.Rules[0].ActionsAttempted)

	assert.True(t, second.OK)
	assert.True(t, second.Matched)
	assert.Equal(t, 0, second.Rules[0].ActionsAttempted)
	assert.Equal(t, "already processed", second.Rules[0].SkipReason)

	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEvaluate_ConcurrentDuplicatesSendOneDM(t *testing.T) {
	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := newTestEngine(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.Evaluate(context.Background(), commentEvent("evt-6"))
		}()
	}
	wg.Wait()

	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEvaluate_PublicReplyWithoutPostID(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionPublicReply, Enabled: true, Template: "Thanks {name}!"},
	}

	mockReplier := &MockPublicReplier{}

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{PublicReplier: mockReplier},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-7"))

	assert.True(t, result.OK)
	assert.True(t, result.Matched)
	assert.Equal(t, 0, result.Rules[0].ActionsAttempted)

	outcome := result.Rules[0].Actions[0]
	assert.True(t, outcome.Skipped)
	assert.Equal(t, "missing postId", outcome.Reason)
	assert.Empty(t, outcome.Error)
	mockReplier.AssertNotCalled(t, "SendPublicReply", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_PublicReplyWithPostID(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionPublicReply, Enabled: true, Template: "Thanks {name}!"},
	}

	mockReplier := &MockPublicReplier{}
	mockReplier.On("SendPublicReply", "facebook", "p99", "Thanks Jo!").Return("reply-1", nil).Once()

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{PublicReplier: mockReplier},
		Options{},
	)

	event := commentEvent("evt-8")
	event.PostID = "p99"

	result := eng.Evaluate(context.Background(), event)

	assert.True(t, result.AnyReplySent)
	mockReplier.AssertExpectations(t)
}

func TestEvaluate_WebhookFailureIsPerAction(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionDirectMessage, Enabled: true, Template: "Thanks {name}!"},
		{Kind: models.ActionWebhook, Enabled: true, URL: "https://hooks.example.com/x", Method: "POST"},
	}

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil).Once()

	mockWebhook := &MockWebhookCaller{}
	mockWebhook.On("CallWebhook", "POST", "https://hooks.example.com/x", mock.Anything, mock.Anything).
		Return(fmt.Errorf("webhook returned status 503")).Once()

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM, WebhookCaller: mockWebhook},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-9"))

	assert.True(t, result.OK)
	assert.True(t, result.AnyDMSent)
	assert.False(t, result.AnyWebhookCalled)
	assert.Equal(t, 2, result.Rules[0].ActionsAttempted)
	assert.Equal(t, 1, result.Rules[0].ActionsSucceeded)
	assert.Contains(t, result.Rules[0].Actions[1].Error, "503")
	mockDM.AssertExpectations(t)
	mockWebhook.AssertExpectations(t)
}

func TestEvaluate_WebhookBadSchemeIsReportedNotFatal(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionWebhook, Enabled: true, URL: "ftp://example.com/hook", Method: "POST"},
	}

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{WebhookCaller: channels.NewWebhookClient()},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-22"))

	assert.True(t, result.OK)
	assert.True(t, result.Matched)
	assert.Contains(t, result.Rules[0].Actions[0].Error, "scheme")
	assert.False(t, result.AnyWebhookCalled)
}

func TestEvaluate_RuleSourceFailure(t *testing.T) {
	eng := newTestEngine(failingSource{}, idempotency.NewMemoryClaimer(), Adapters{}, Options{})

	result := eng.Evaluate(context.Background(), commentEvent("evt-10"))

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "failed to load rules")
	assert.Empty(t, result.Rules)
}

func TestEvaluate_ClaimStoreFailure(t *testing.T) {
	eng := newTestEngine(
		rules.NewMemorySource(commentRule("r1")),
		failingClaimer{},
		Adapters{},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-11"))

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "claim store unavailable")
	assert.True(t, result.Rules[0].Matched)
	assert.Equal(t, 0, result.Rules[0].ActionsAttempted)
}

func TestEvaluate_GenerationFailureFallsBackToDefault(t *testing.T) {
	rule := commentRule("r1")
	// No template: the action asks for AI enrichment.
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionDirectMessage, Enabled: true},
	}

	mockGen := &MockGenerator{}
	mockGen.On("Generate", mock.Anything, mock.Anything).Return("", fmt.Errorf("model overloaded"))

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "We hear you!").Return("mid-1", nil).Once()

	eng := New(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		mockGen,
		Adapters{DirectMessenger: mockDM},
		audit.NopSink{},
		nil,
		Options{DefaultReply: "We hear you!"},
	)
	eng.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	result := eng.Evaluate(context.Background(), commentEvent("evt-12"))

	assert.True(t, result.OK)
	assert.True(t, result.AnyDMSent)
	mockDM.AssertExpectations(t)
	mockGen.AssertExpectations(t)
}

func TestEvaluate_GeneratedContentIsUsed(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionDirectMessage, Enabled: true},
	}

	mockGen := &MockGenerator{}
	mockGen.On("Generate", mock.Anything, "This is amazing!").Return("So glad you like it!", nil).Once()

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "So glad you like it!").Return("mid-1", nil).Once()

	eng := New(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		mockGen,
		Adapters{DirectMessenger: mockDM},
		audit.NopSink{},
		nil,
		Options{},
	)
	eng.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	result := eng.Evaluate(context.Background(), commentEvent("evt-13"))

	assert.True(t, result.AnyDMSent)
	mockDM.AssertExpectations(t)
	mockGen.AssertExpectations(t)
}

func TestEvaluate_EmailAction(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{
			Kind:            models.ActionEmail,
			Enabled:         true,
			Recipients:      []string{"ops@example.com"},
			SubjectTemplate: "New comment from {name}",
			BodyTemplate:    "{name} wrote: {text}",
		},
	}

	mockEmail := &MockEmailSender{}
	mockEmail.On("SendEmail", []string{"ops@example.com"}, "New comment from Jo", "Jo wrote: This is amazing!").
		Return(nil).Once()

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{EmailSender: mockEmail},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-14"))

	assert.True(t, result.AnyEmailSent)
	mockEmail.AssertExpectations(t)
}

func TestEvaluate_FirstMatchOnly(t *testing.T) {
	ruleA := commentRule("r1")
	ruleB := commentRule("r2")
	ruleB.CreatedAt = ruleA.CreatedAt.Add(time.Hour)

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := newTestEngine(
		rules.NewMemorySource(ruleA, ruleB),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{FirstMatchOnly: true},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-15"))

	assert.True(t, result.Matched)
	assert.Len(t, result.Rules, 1)
	assert.Equal(t, "r1", result.Rules[0].RuleID)
	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEvaluate_AllMatchingRulesFireIndependently(t *testing.T) {
	ruleA := commentRule("r1")
	ruleB := commentRule("r2")

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := newTestEngine(
		rules.NewMemorySource(ruleA, ruleB),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-16"))

	assert.Len(t, result.Rules, 2)
	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 2)
}

func TestEvaluate_RateLimited(t *testing.T) {
	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := New(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		nil,
		Adapters{DirectMessenger: mockDM},
		audit.NopSink{},
		NewWindowLimiter(1, time.Hour),
		Options{},
	)
	eng.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	first := eng.Evaluate(context.Background(), commentEvent("evt-17"))
	second := eng.Evaluate(context.Background(), commentEvent("evt-18"))

	assert.Equal(t, 1, first.Rules[0].ActionsAttempted)
	assert.True(t, second.Matched)
	assert.Equal(t, 0, second.Rules[0].ActionsAttempted)
	assert.Equal(t, "rate limited", second.Rules[0].SkipReason)
	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEvaluate_RedeliveredDuplicateDoesNotBurnRateBudget(t *testing.T) {
	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "facebook", "u1", "Thanks Jo!").Return("mid-1", nil)

	eng := New(
		rules.NewMemorySource(commentRule("r1")),
		idempotency.NewMemoryClaimer(),
		nil,
		Adapters{DirectMessenger: mockDM},
		audit.NopSink{},
		NewWindowLimiter(2, time.Hour),
		Options{},
	)
	eng.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	// One send, then the platform redelivers the same event three times.
	eng.Evaluate(context.Background(), commentEvent("evt-20"))
	for i := 0; i < 3; i++ {
		dup := eng.Evaluate(context.Background(), commentEvent("evt-20"))
		assert.Equal(t, "already processed", dup.Rules[0].SkipReason)
	}

	// Redeliveries must not count against the window: a fresh event still
	// fits in the budget of two.
	fresh := eng.Evaluate(context.Background(), commentEvent("evt-21"))
	assert.Equal(t, 1, fresh.Rules[0].ActionsAttempted)
	assert.Empty(t, fresh.Rules[0].SkipReason)
	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 2)
}

func TestEvaluate_TimeRuleIgnoresInboundComments(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	rule := models.AutomationRule{
		ID:          "t1",
		WorkspaceID: "ws1",
		Name:        "campaign send",
		Enabled:     true,
		TriggerKind: models.TriggerTime,
		Schedule:    &models.Schedule{At: &past},
		Actions: []models.ActionConfig{
			{Kind: models.ActionDirectMessage, Enabled: true, Template: "Sale is on!"},
		},
	}

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", mock.Anything, mock.Anything, mock.Anything).Return("mid-1", nil)

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	// Two distinct comments arrive while the occurrence is due. Each has its
	// own external event id, so the claim store cannot dedupe them; the
	// trigger itself must not match.
	for _, id := range []string{"comment-1", "comment-2"} {
		result := eng.Evaluate(context.Background(), commentEvent(id))
		assert.False(t, result.Matched)
	}
	mockDM.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)

	// The sweeper's synthetic event is the only thing that fires it.
	scheduled := models.Event{
		WorkspaceID:     "ws1",
		ExternalEventID: "sched-t1-1748779200",
		Platform:        models.PlatformScheduled,
	}
	result := eng.Evaluate(context.Background(), scheduled)
	assert.True(t, result.Matched)
	mockDM.AssertNumberOfCalls(t, "SendDirectMessage", 1)
}

func TestEvaluate_CanceledBeforeDispatch(t *testing.T) {
	rule := commentRule("r1")
	rule.DelaySeconds = 30

	mockDM := &MockDirectMessenger{}

	eng := New(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		nil,
		Adapters{DirectMessenger: mockDM},
		audit.NopSink{},
		nil,
		Options{},
	)

	// The claim succeeds, then cancellation lands during the 30s delay.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := eng.Evaluate(ctx, commentEvent("evt-19"))

	assert.True(t, result.Matched)
	assert.Equal(t, "evaluation canceled before dispatch", result.Rules[0].Error)
	mockDM.AssertNotCalled(t, "SendDirectMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_UnknownActionKindIsReported(t *testing.T) {
	rule := commentRule("r1")
	rule.Actions = []models.ActionConfig{
		{Kind: models.ActionKind("carrier_pigeon"), Enabled: true},
	}

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{},
		Options{},
	)

	result := eng.Evaluate(context.Background(), commentEvent("evt-20"))

	assert.True(t, result.OK)
	assert.Contains(t, result.Rules[0].Actions[0].Error, "unknown action kind")
}

func TestEvaluate_NoRulesIsNormal(t *testing.T) {
	eng := newTestEngine(rules.NewMemorySource(), idempotency.NewMemoryClaimer(), Adapters{}, Options{})

	result := eng.Evaluate(context.Background(), commentEvent("evt-21"))

	assert.True(t, result.OK)
	assert.False(t, result.Matched)
	assert.Empty(t, result.Rules)
}

func TestRunRule_ManualInvocationFires(t *testing.T) {
	rule := commentRule("r1")
	// The trigger would not match this event; a manual run fires anyway.
	rule.TriggerKeywords = []string{"nothing-that-matches"}

	mockDM := &MockDirectMessenger{}
	mockDM.On("SendDirectMessage", "manual", "u1", "Thanks Jo!").Return("mid-1", nil).Once()

	eng := newTestEngine(
		rules.NewMemorySource(rule),
		idempotency.NewMemoryClaimer(),
		Adapters{DirectMessenger: mockDM},
		Options{},
	)

	event := commentEvent("manual-1")
	event.Platform = models.PlatformManual

	result := eng.RunRule(context.Background(), "r1", event)

	assert.True(t, result.OK)
	assert.True(t, result.Matched)
	assert.Equal(t, 1, result.Rules[0].ActionsAttempted)
	mockDM.AssertExpectations(t)
}

func TestRunRule_UnknownRule(t *testing.T) {
	eng := newTestEngine(rules.NewMemorySource(), idempotency.NewMemoryClaimer(), Adapters{}, Options{})

	result := eng.RunRule(context.Background(), "nope", commentEvent("manual-2"))

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "not found")
}
