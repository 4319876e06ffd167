package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

// defaultEmailSubject is used when an email action has no subject template.
const defaultEmailSubject = "New customer interaction"

// dispatchActions runs every configured action on rule independently: one
// channel failing, or even panicking, must not abort its siblings.
func (e *Engine) dispatchActions(ctx context.Context, rule models.AutomationRule, event models.Event) []models.ActionOutcome {
	outcomes := make([]models.ActionOutcome, 0, len(rule.Actions))
	for _, action := range rule.Actions {
		outcomes = append(outcomes, e.runAction(ctx, action, event))
	}
	return outcomes
}

func (e *Engine) runAction(ctx context.Context, action models.ActionConfig, event models.Event) (outcome models.ActionOutcome) {
	outcome.Kind = action.Kind

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Channel adapter for %s panicked: %v", action.Kind, r)
			outcome.Success = false
			outcome.Error = fmt.Sprintf("adapter panic: %v", r)
		}
	}()

	if !action.Enabled {
		outcome.Skipped = true
		outcome.Reason = "action disabled"
		return outcome
	}

	switch action.Kind {
	case models.ActionDirectMessage:
		return e.runDirectMessage(ctx, action, event)
	case models.ActionPublicReply:
		return e.runPublicReply(ctx, action, event)
	case models.ActionEmail:
		return e.runEmail(ctx, action, event)
	case models.ActionWebhook:
		return e.runWebhook(ctx, action, event)
	default:
		outcome.Error = fmt.Sprintf("unknown action kind %q", action.Kind)
		return outcome
	}
}

func (e *Engine) runDirectMessage(ctx context.Context, action models.ActionConfig, event models.Event) models.ActionOutcome {
	outcome := models.ActionOutcome{Kind: models.ActionDirectMessage}

	if event.AuthorID == "" {
		outcome.Skipped = true
		outcome.Reason = "missing authorId"
		return outcome
	}
	if e.directMessenger == nil {
		outcome.Error = "direct message channel is not configured"
		return outcome
	}

	content := e.buildContent(ctx, action.Template, event, action.Template == "")

	outcome.Attempted = true
	providerID, err := e.directMessenger.SendDirectMessage(ctx, event.Platform, event.AuthorID, content)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.ProviderID = providerID
	return outcome
}

func (e *Engine) runPublicReply(ctx context.Context, action models.ActionConfig, event models.Event) models.ActionOutcome {
	outcome := models.ActionOutcome{Kind: models.ActionPublicReply}

	if event.PostID == "" {
		outcome.Skipped = true
		outcome.Reason = "missing postId"
		return outcome
	}
	if e.publicReplier == nil {
		outcome.Error = "public reply channel is not configured"
		return outcome
	}

	content := e.buildContent(ctx, action.Template, event, action.Template == "")

	outcome.Attempted = true
	providerID, err := e.publicReplier.SendPublicReply(ctx, event.Platform, event.PostID, content)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.ProviderID = providerID
	return outcome
}

func (e *Engine) runEmail(ctx context.Context, action models.ActionConfig, event models.Event) models.ActionOutcome {
	outcome := models.ActionOutcome{Kind: models.ActionEmail}

	if len(action.Recipients) == 0 {
		outcome.Skipped = true
		outcome.Reason = "no recipients configured"
		return outcome
	}
	if e.emailSender == nil {
		outcome.Error = "email channel is not configured"
		return outcome
	}

	subject := RenderTemplate(action.SubjectTemplate, event)
	if subject == "" {
		subject = defaultEmailSubject
	}
	body := e.buildContent(ctx, action.BodyTemplate, event, action.UseGeneratedBody || action.BodyTemplate == "")

	outcome.Attempted = true
	if err := e.emailSender.SendEmail(ctx, action.Recipients, subject, body); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	return outcome
}

func (e *Engine) runWebhook(ctx context.Context, action models.ActionConfig, event models.Event) models.ActionOutcome {
	outcome := models.ActionOutcome{Kind: models.ActionWebhook}

	if action.URL == "" {
		outcome.Skipped = true
		outcome.Reason = "no URL configured"
		return outcome
	}
	if e.webhookCaller == nil {
		outcome.Error = "webhook channel is not configured"
		return outcome
	}

	var body string
	if action.BodyTemplate != "" {
		body = RenderTemplate(action.BodyTemplate, event)
	} else {
		data, err := json.Marshal(event)
		if err != nil {
			outcome.Error = fmt.Sprintf("failed to encode event payload: %v", err)
			return outcome
		}
		body = string(data)
	}

	outcome.Attempted = true
	if err := e.webhookCaller.CallWebhook(ctx, action.Method, action.URL, action.Headers, body); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	return outcome
}
