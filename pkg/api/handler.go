package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
)

// SendMessageRequest is the body of POST /api/llm/send-message.
type SendMessageRequest struct {
	Prompt   string `json:"Prompt"`
	Provider string `json:"Provider"`
	Model    string `json:"Model"`
}

// SendMessageResponse is the success body of POST /api/llm/send-message.
type SendMessageResponse struct {
	Response string `json:"response"`
}

// InfoResponse is the body of GET /api/llm/info.
type InfoResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	AllowedProviders []string  `json:"allowedProviders"`
	AllowedModels    []string  `json:"allowedModels"`
}

// LLMHandler serves the synchronous completion endpoints.
type LLMHandler struct {
	service        Service
	logger         Logger
	requestTimeout time.Duration
}

// NewLLMHandler creates the handler. A zero requestTimeout means no limit
// beyond the provider's own timeout.
func NewLLMHandler(service Service, logger Logger, requestTimeout time.Duration) *LLMHandler {
	return &LLMHandler{service: service, logger: logger, requestTimeout: requestTimeout}
}

// SendMessage runs one completion and returns its text.
func (h *LLMHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	provider, model, msg := h.validate(req)
	if msg != "" {
		h.logger.WarnWithContext(ctx, "send-message validation failed", nil, map[string]interface{}{
			"provider": req.Provider,
			"model":    req.Model,
			"reason":   msg,
		})
		WriteError(w, http.StatusBadRequest, "Validation failed", msg)
		return
	}

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	fields := map[string]interface{}{
		"provider":   provider.String(),
		"model":      model,
		"request_id": RequestIDFromContext(ctx),
	}

	h.logger.InfoWithContext(ctx, "sending message to provider", nil, fields)
	text, err := h.service.Complete(ctx, provider, model, req.Prompt)
	if err != nil {
		status, body := completionFailure(err)
		h.logger.ErrorWithContext(ctx, "send-message failed", err, fields, map[string]interface{}{"status": status})
		WriteJSON(w, status, body)
		return
	}

	h.logger.InfoWithContext(ctx, "received response from provider", nil, fields)
	WriteJSON(w, http.StatusOK, SendMessageResponse{Response: text})
}

// validate returns the resolved provider and model, or a reason the request
// is invalid.
func (h *LLMHandler) validate(req SendMessageRequest) (llm.Provider, string, string) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", "", "Prompt is required"
	}

	provider, ok := llm.ParseProvider(req.Provider)
	if !ok {
		return "", "", "Invalid provider '" + req.Provider + "'. Allowed: " + strings.Join(providerNames(), ", ")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.service.DefaultModel(provider)
	}
	if model == "" {
		return "", "", "Model is required"
	}
	if !h.service.ModelAllowed(model) {
		return "", "", "Model '" + model + "' is not allowed"
	}
	return provider, model, ""
}

// Info reports liveness and the accepted providers and models.
func (h *LLMHandler) Info(w http.ResponseWriter, r *http.Request) {
	models := h.service.AllowedModels()
	if models == nil {
		models = []string{}
	}
	WriteJSON(w, http.StatusOK, InfoResponse{
		Status:           "healthy",
		Timestamp:        time.Now().UTC(),
		AllowedProviders: providerNames(),
		AllowedModels:    models,
	})
}

// Health is the liveness probe.
func (h *LLMHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func providerNames() []string {
	providers := llm.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.String())
	}
	return names
}
