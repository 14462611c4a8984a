package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// responsesClient uses the OpenAI Responses API.
type responsesClient struct {
	provider Provider
	client   openai.Client
}

// chatClient uses the chat completions API of OpenAI-compatible providers.
type chatClient struct {
	provider Provider
	client   openai.Client
}

func sdkOptions(pc ProviderConfig) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithBaseURL(pc.BaseURL),
		option.WithRequestTimeout(pc.Timeout),
		option.WithMaxRetries(0),
	}
	if pc.APIKey != "" {
		opts = append(opts, option.WithAPIKey(pc.APIKey))
	}
	for k, v := range pc.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	return opts
}

func newResponsesClient(p Provider, pc ProviderConfig) *responsesClient {
	return &responsesClient{provider: p, client: openai.NewClient(sdkOptions(pc)...)}
}

func newChatClient(p Provider, pc ProviderConfig) *chatClient {
	return &chatClient{provider: p, client: openai.NewClient(sdkOptions(pc)...)}
}

func (c *responsesClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
	})
	if err != nil {
		return "", translateSDKError(ctx, c.provider, err)
	}

	if len(resp.Output) == 0 {
		return "", &MalformedResponseError{Provider: c.provider, Reason: "no output items"}
	}
	return textOrEmptyResult(resp.OutputText()), nil
}

func (c *chatClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     model,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxTokens: openai.Int(defaultMaxTokens),
	})
	if err != nil {
		return "", translateSDKError(ctx, c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Provider: c.provider, Reason: "no choices"}
	}
	return textOrEmptyResult(resp.Choices[0].Message.Content), nil
}
