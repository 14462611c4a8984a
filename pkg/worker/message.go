package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// InputMessage is the body of a request on the input queue.
type InputMessage struct {
	ModelProvider string `json:"ModelProvider"`
	Model         string `json:"Model,omitempty"`
	Prompt        string `json:"Prompt"`
	ReplyTo       string `json:"ReplyTo"`
}

// ParseInputMessage decodes body, tolerating trailing commas, and checks
// the required fields. Every failure wraps ErrMalformedMessage.
func ParseInputMessage(body []byte) (InputMessage, error) {
	var msg InputMessage

	std, err := hujson.Standardize(body)
	if err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := json.Unmarshal(std, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch {
	case strings.TrimSpace(msg.Prompt) == "":
		return msg, fmt.Errorf("%w: Prompt is required", ErrMalformedMessage)
	case strings.TrimSpace(msg.ReplyTo) == "":
		return msg, fmt.Errorf("%w: ReplyTo is required", ErrMalformedMessage)
	}
	return msg, nil
}

type responseEnvelope struct {
	LlmResponse json.RawMessage `json:"LlmResponse"`
}

// BuildResponseBody wraps the provider text as {"LlmResponse": ...}. Text
// that is valid JSON (trailing commas allowed) is embedded as JSON,
// anything else as a JSON string.
func BuildResponseBody(text string) ([]byte, error) {
	var raw json.RawMessage

	if std, err := hujson.Standardize([]byte(text)); err == nil && json.Valid(std) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, std); err != nil {
			return nil, err
		}
		raw = compact.Bytes()
	} else {
		quoted, err := json.Marshal(text)
		if err != nil {
			return nil, err
		}
		raw = quoted
	}

	return json.Marshal(responseEnvelope{LlmResponse: raw})
}
