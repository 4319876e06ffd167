package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// PlatformClient sends direct messages and public replies through the
// platform gateway API (the collaborator fronting Facebook, Instagram and
// website chat).
type PlatformClient struct {
	client  *resty.Client
	baseURL string
}

// Ensure PlatformClient implements both messaging interfaces
var _ DirectMessenger = (*PlatformClient)(nil)
var _ PublicReplier = (*PlatformClient)(nil)

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

type sendReplyRequest struct {
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// NewPlatformClient creates a platform gateway client
func NewPlatformClient(baseURL, token string) *PlatformClient {
	client := resty.New().SetTimeout(30 * time.Second)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &PlatformClient{
		client:  client,
		baseURL: baseURL,
	}
}

// SendDirectMessage delivers a private message to recipientID on platform
func (p *PlatformClient) SendDirectMessage(ctx context.Context, platform, recipientID, text string) (string, error) {
	var result sendResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendMessageRequest{RecipientID: recipientID, Text: text}).
		SetResult(&result).
		Post(fmt.Sprintf("%s/v1/%s/messages", p.baseURL, platform))

	if err != nil {
		return "", fmt.Errorf("failed to send direct message: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("platform API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	logrus.WithFields(logrus.Fields{
		"platform":   platform,
		"message_id": result.MessageID,
	}).Debug("Direct message sent")

	return result.MessageID, nil
}

// SendPublicReply posts a reply under postID on platform
func (p *PlatformClient) SendPublicReply(ctx context.Context, platform, postID, text string) (string, error) {
	var result sendResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendReplyRequest{Text: text}).
		SetResult(&result).
		Post(fmt.Sprintf("%s/v1/%s/posts/%s/replies", p.baseURL, platform, postID))

	if err != nil {
		return "", fmt.Errorf("failed to send public reply: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("platform API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	logrus.WithFields(logrus.Fields{
		"platform": platform,
		"post_id":  postID,
		"reply_id": result.MessageID,
	}).Debug("Public reply sent")

	return result.MessageID, nil
}
