package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeClient uses the Anthropic messages API.
type claudeClient struct {
	client anthropic.Client
}

func newClaudeClient(pc ProviderConfig) *claudeClient {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(pc.BaseURL, "/") + "/"),
		option.WithRequestTimeout(pc.Timeout),
		option.WithMaxRetries(0),
	}
	if pc.APIKey != "" {
		opts = append(opts, option.WithAPIKey(pc.APIKey))
	}
	for k, v := range pc.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &claudeClient{client: anthropic.NewClient(opts...)}
}

func (c *claudeClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", translateSDKError(ctx, Claude, err)
	}

	if len(msg.Content) == 0 {
		return "", &MalformedResponseError{Provider: Claude, Reason: "no content blocks"}
	}
	return textOrEmptyResult(msg.Content[0].Text), nil
}

// textOrEmptyResult trims text and substitutes EmptyResult when nothing is left.
func textOrEmptyResult(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyResult
	}
	return text
}
