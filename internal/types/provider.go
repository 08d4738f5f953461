package types

import (
	"fmt"
	"strings"
)

// ProviderType identifies an LLM vendor
type ProviderType string

const (
	// ProviderAnthropic is Anthropic's Messages API
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderOpenAI is OpenAI's Chat Completions API
	ProviderOpenAI ProviderType = "openai"

	// ProviderGoogle is Google's Gemini API
	ProviderGoogle ProviderType = "google"
)

// ProviderTypes lists every supported provider
var ProviderTypes = []ProviderType{ProviderAnthropic, ProviderOpenAI, ProviderGoogle}

// ParseProviderType converts a config string into a ProviderType
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProviderTypes {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported provider %q (supported: anthropic, openai, google)", s)
}

// ProviderConfig is one entry of the ordered provider preference list
type ProviderConfig struct {
	// Provider selects the adapter
	Provider ProviderType

	// APIKey authenticates against the provider
	APIKey string

	// Model overrides the adapter's default model
	Model string
}

// String returns the provider config with the key redacted
func (p ProviderConfig) String() string {
	model := p.Model
	if model == "" {
		model = "default"
	}
	return fmt.Sprintf("%s(model=%s, key=%s)", p.Provider, model, RedactSecret(p.APIKey))
}

// RedactSecret keeps the last four characters of long secrets
func RedactSecret(s string) string {
	switch {
	case s == "":
		return "not set"
	case len(s) > 8:
		return "***" + s[len(s)-4:]
	default:
		return "***"
	}
}
