package channels

import "context"

// DirectMessenger delivers a private message to the author of an event.
type DirectMessenger interface {
	SendDirectMessage(ctx context.Context, platform, recipientID, text string) (providerID string, err error)
}

// PublicReplier posts a public reply under the originating post.
type PublicReplier interface {
	SendPublicReply(ctx context.Context, platform, postID, text string) (providerID string, err error)
}

// EmailSender delivers an outbound email to one or more recipients.
type EmailSender interface {
	SendEmail(ctx context.Context, recipients []string, subject, body string) error
}

// WebhookCaller issues an outbound HTTP call to an operator-configured URL.
type WebhookCaller interface {
	CallWebhook(ctx context.Context, method, url string, headers map[string]string, body string) error
}
