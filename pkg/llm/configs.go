package llm

import (
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1000

	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultGrokBaseURL    = "https://api.x.ai/v1"
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultClaudeBaseURL  = "https://api.anthropic.com/"
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
)

// ProviderConfig holds the connection settings of one provider.
// A provider counts as configured when it has an API key or at least one
// static header (some deployments authenticate through a gateway header).
type ProviderConfig struct {
	// BaseURL overrides the provider's public endpoint.
	BaseURL string `envconfig:"BASE_URL"`

	// APIKey authenticates requests. It is sent the way each provider expects it.
	APIKey string `envconfig:"API_KEY"`

	// Headers are added to every request, e.g. "x-team:search,x-env:prod".
	Headers map[string]string `envconfig:"HEADERS"`

	// Timeout bounds a single completion request.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`

	// DefaultModel is used when a message does not name a model.
	DefaultModel string `envconfig:"DEFAULT_MODEL"`
}

// Config groups the per-provider settings. Environment keys are
// LLM_<PROVIDER>_<FIELD>, for example LLM_CLAUDE_API_KEY.
type Config struct {
	OpenAI  ProviderConfig `envconfig:"OPENAI"`
	Claude  ProviderConfig `envconfig:"CLAUDE"`
	Gemini  ProviderConfig `envconfig:"GEMINI"`
	Grok    ProviderConfig `envconfig:"GROK"`
	Mistral ProviderConfig `envconfig:"MISTRAL"`

	// AllowedModels restricts the models accepted by the HTTP surface.
	// Empty means no restriction.
	AllowedModels []string `envconfig:"ALLOWED_MODELS"`
}

// For returns the settings of p with defaults applied.
func (c Config) For(p Provider) ProviderConfig {
	var pc ProviderConfig
	var base string

	switch p {
	case OpenAI:
		pc, base = c.OpenAI, defaultOpenAIBaseURL
	case Claude:
		pc, base = c.Claude, defaultClaudeBaseURL
	case Gemini:
		pc, base = c.Gemini, defaultGeminiBaseURL
	case Grok:
		pc, base = c.Grok, defaultGrokBaseURL
	case Mistral:
		pc, base = c.Mistral, defaultMistralBaseURL
	}

	if pc.BaseURL == "" {
		pc.BaseURL = base
	}
	if pc.Timeout <= 0 {
		pc.Timeout = defaultTimeout
	}
	return pc
}

// Configured reports whether the provider has credentials.
func (pc ProviderConfig) Configured() bool {
	return pc.APIKey != "" || len(pc.Headers) > 0
}

// ModelAllowed reports whether model passes the allow-list. Matching
// ignores case.
func (c Config) ModelAllowed(model string) bool {
	if len(c.AllowedModels) == 0 {
		return true
	}
	for _, m := range c.AllowedModels {
		if strings.EqualFold(m, model) {
			return true
		}
	}
	return false
}
