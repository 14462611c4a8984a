package worker

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
)

// Permanent failures. A delivery failing with one of these is rejected
// without requeue and never reaches a provider twice.
var (
	ErrMissingCorrelationID = errors.New("message has no correlation id")
	ErrMalformedMessage     = errors.New("malformed message")
	ErrUnknownProvider      = errors.New("unknown model provider")
	ErrMissingModel         = errors.New("no model given and provider has no default model")
)

// ErrRetriesExhausted wraps the last error once every completion attempt failed.
var ErrRetriesExhausted = errors.New("completion retries exhausted")

// IsPermanent reports whether err is one of the message or configuration
// failures that no retry can fix.
func IsPermanent(err error) bool {
	for _, target := range []error{
		ErrMissingCorrelationID,
		ErrMalformedMessage,
		ErrUnknownProvider,
		ErrMissingModel,
		llm.ErrProviderNotConfigured,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth another attempt: provider
// transport, upstream and malformed-response failures, deadlines, network
// errors, and anything mentioning a rate limit or timeout. Permanent
// failures are never transient, whatever their text says.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}

	var transportErr *llm.TransportError
	var upstreamErr *llm.UpstreamError
	var malformedErr *llm.MalformedResponseError
	if errors.As(err, &transportErr) || errors.As(err, &upstreamErr) || errors.As(err, &malformedErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "timeout")
}
