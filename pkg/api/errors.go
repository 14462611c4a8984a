package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, msg, details string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// completionFailure maps a completion error to a status code and response.
//
//	transport failure          503
//	timeout                    504
//	provider not configured    500
//	upstream or bad response   500
//	anything else              500
func completionFailure(err error) (int, ErrorResponse) {
	var transportErr *llm.TransportError
	var upstreamErr *llm.UpstreamError
	var malformedErr *llm.MalformedResponseError

	switch {
	case isTimeout(err):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: "Request timed out. The LLM provider took too long to respond.",
		}
	case errors.As(err, &transportErr):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Service temporarily unavailable. Please try again later.",
			Details: err.Error(),
		}
	case errors.Is(err, llm.ErrProviderNotConfigured):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Provider configuration error",
			Details: err.Error(),
		}
	case errors.As(err, &upstreamErr), errors.As(err, &malformedErr):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to process LLM response",
			Details: err.Error(),
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred while processing your request.",
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
