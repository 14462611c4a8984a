package llm

import "strings"

// Provider identifies a completion backend.
type Provider string

const (
	Gemini  Provider = "Gemini"
	OpenAI  Provider = "OpenAI"
	Grok    Provider = "Grok"
	Claude  Provider = "Claude"
	Mistral Provider = "Mistral"
)

// Providers lists every supported provider in declaration order.
func Providers() []Provider {
	return []Provider{Gemini, OpenAI, Grok, Claude, Mistral}
}

// ParseProvider resolves a provider name case-insensitively.
func ParseProvider(name string) (Provider, bool) {
	name = strings.TrimSpace(name)
	for _, p := range Providers() {
		if strings.EqualFold(name, string(p)) {
			return p, true
		}
	}
	return "", false
}

func (p Provider) String() string {
	return string(p)
}
