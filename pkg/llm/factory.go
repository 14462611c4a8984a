package llm

import (
	"fmt"
	"net/http"
)

// NewFactory returns a Factory building clients from cfg.
// Providers without credentials yield ErrProviderNotConfigured.
func NewFactory(cfg Config) Factory {
	return func(p Provider) (Client, error) {
		pc := cfg.For(p)
		if !pc.Configured() {
			return nil, fmt.Errorf("%s: %w", p, ErrProviderNotConfigured)
		}

		switch p {
		case OpenAI:
			return newResponsesClient(p, pc), nil
		case Grok, Mistral:
			return newChatClient(p, pc), nil
		case Claude:
			return newClaudeClient(pc), nil
		case Gemini:
			return newGeminiClient(pc, &http.Client{Timeout: pc.Timeout}), nil
		default:
			return nil, fmt.Errorf("unsupported provider %q", p)
		}
	}
}
