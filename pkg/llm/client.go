package llm

import "fmt"

// DefaultClientConfig returns the baseline configuration a ResolvedProvider
// is applied to.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    120,
		MaxRetries: 3,
	}
}

// NewClient builds a client for the configured backend.
func NewClient(cfg ClientConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderOllama:
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}

// NewClientFor builds a call context from a resolved provider: the provider's
// captured values are applied to a fresh config, so the client reflects
// exactly the resolution-time settings.
func NewClientFor(rp ResolvedProvider) (Client, error) {
	if rp == nil {
		return nil, ErrNoProviderConfigured
	}

	cfg := DefaultClientConfig()
	rp.Configure(&cfg)
	return NewClient(cfg)
}
