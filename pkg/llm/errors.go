package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// ErrProviderNotConfigured is returned when a provider has no credentials.
var ErrProviderNotConfigured = errors.New("llm provider is not configured")

// TransportError reports that the provider could not be reached or did not
// answer in time.
type TransportError struct {
	Provider Provider
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError reports a non-success status from the provider.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// MalformedResponseError reports a response that could not be turned into text.
type MalformedResponseError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// EmptyResult is returned in place of a completion that carried no text.
const EmptyResult = "Empty result"

// translateSDKError maps client library failures onto the error types above.
// A canceled or expired caller context is returned as is.
func translateSDKError(ctx context.Context, p Provider, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return &UpstreamError{Provider: p, StatusCode: openaiErr.StatusCode, Body: openaiErr.Message}
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return &UpstreamError{Provider: p, StatusCode: anthropicErr.StatusCode, Body: anthropicErr.RawJSON()}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &MalformedResponseError{Provider: p, Reason: "decode body", Err: err}
	}

	return &TransportError{Provider: p, Err: err}
}
