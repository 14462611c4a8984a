package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps how much of a failed response is kept in UpstreamError.
const maxErrorBody = 4 << 10

// httpClient calls JSON APIs that have no client library here (Gemini).
type httpClient struct {
	provider Provider
	client   *http.Client
	headers  map[string]string
}

// postJSON marshals body, sends it to url with the configured headers and
// decodes a 2xx response into out. Failures come back as TransportError,
// UpstreamError or MalformedResponseError; cancellation of ctx is returned as is.
func (h *httpClient) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Provider: h.provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Provider: h.provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &MalformedResponseError{Provider: h.provider, Reason: "decode response", Err: err}
	}
	return nil
}

type geminiClient struct {
	httpClient
	baseURL string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func newGeminiClient(pc ProviderConfig, hc *http.Client) *geminiClient {
	headers := map[string]string{}
	if pc.APIKey != "" {
		headers["x-goog-api-key"] = pc.APIKey
	}
	for k, v := range pc.Headers {
		headers[k] = v
	}

	return &geminiClient{
		httpClient: httpClient{provider: Gemini, client: hc, headers: headers},
		baseURL:    strings.TrimRight(pc.BaseURL, "/"),
	}
}

// endpoint returns {base}/models/{model}:generateContent. A model that
// already names its method is used verbatim.
func (c *geminiClient) endpoint(model string) string {
	if !strings.Contains(model, ":") {
		model += ":generateContent"
	}
	return c.baseURL + "/models/" + url.PathEscape(model)
}

func (c *geminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	var out geminiResponse
	err := c.postJSON(ctx, c.endpoint(model), geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}, &out)
	if err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", &MalformedResponseError{Provider: Gemini, Reason: "no candidates"}
	}
	if len(out.Candidates[0].Content.Parts) == 0 {
		return "", &MalformedResponseError{Provider: Gemini, Reason: "no content parts"}
	}
	return textOrEmptyResult(out.Candidates[0].Content.Parts[0].Text), nil
}
