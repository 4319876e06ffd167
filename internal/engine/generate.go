package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wisemantransports-ux/retail-assist-sub007/internal/models"
)

const generationSystemPrompt = "You are replying on behalf of a business to a customer interaction. " +
	"Write a short, friendly, professional response to the customer's message. " +
	"Do not mention that you are automated. Reply with the message text only."

// buildContent produces the final outbound text for one action. When enrich
// is false the template is rendered directly. When enrich is true the text
// generator is consulted with a bounded timeout; on failure the rendered
// template is used if non-empty, else the configured default reply.
// Generation failure never propagates: a degraded message beats silence.
func (e *Engine) buildContent(ctx context.Context, template string, event models.Event, enrich bool) string {
	if !enrich {
		return RenderTemplate(template, event)
	}

	if e.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, e.opts.GenerationTimeout)
		defer cancel()

		text, err := e.generator.Generate(genCtx, generationSystemPrompt, event.Text)
		if err == nil && text != "" {
			return text
		}

		logrus.WithFields(logrus.Fields{
			"workspace_id": event.WorkspaceID,
			"event_id":     event.ExternalEventID,
		}).Warnf("Text generation failed, falling back to template: %v", err)
	}

	if template != "" {
		return RenderTemplate(template, event)
	}

	return e.opts.DefaultReply
}

// sleepContext waits for d unless ctx is canceled first. A zero or negative
// delay only checks for cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
