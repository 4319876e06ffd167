package genai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Generator produces response text for events that ask for AI enrichment.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userText string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	client  *resty.Client
	baseURL string
	model   string
}

// Ensure OpenAIClient implements Generator
var _ Generator = (*OpenAIClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a chat-completions client. timeout bounds every
// request in addition to any caller-supplied context deadline.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	client := resty.New().SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &OpenAIClient{
		client:  client,
		baseURL: baseURL,
		model:   model,
	}
}

// Generate returns the completion for systemPrompt + userText
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	var result chatResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userText},
			},
		}).
		SetResult(&result).
		Post(c.baseURL + "/v1/chat/completions")

	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("generation API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if result.Error != nil {
		return "", fmt.Errorf("generation API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("generation API returned no content")
	}

	logrus.WithField("model", c.model).Debug("Generated response text")
	return result.Choices[0].Message.Content, nil
}
