package judge

import (
	"context"
	"fmt"
)

// Backend names accepted by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// NewProvider builds the named backend bound to the given model. The context
// covers client construction only. An empty model selects each backend's
// judging default.
func NewProvider(ctx context.Context, name, apiKey, model string) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model)
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model)
	case ProviderGoogle:
		return NewGoogleProvider(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown judge provider %q (want %s, %s, or %s)",
			name, ProviderOpenAI, ProviderAnthropic, ProviderGoogle)
	}
}
