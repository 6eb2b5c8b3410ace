// Package llm provides runtime provider resolution and the HTTP clients for
// the supported LLM backends.
//
// Resolution is intentionally stateless and re-run on every tool invocation:
// credentials and default models are administrator-editable at runtime, so
// every call starts from a fresh settings snapshot and captures all values it
// needs into an immutable ResolvedProvider before any network I/O.
package llm

import (
	"errors"
	"strings"

	"github.com/skchakri/medi-vault/pkg/settings"
)

// Provider identifies the LLM backend type.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Hardcoded fallback models, used when neither a preferred model nor a
// configured default is available.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultOllamaModel    = "llama3.2"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultWhisperModel   = "whisper-1"

	// VisionModel handles image and scanned-PDF text extraction.
	VisionModel = "gpt-4o"
)

// ErrNoProviderConfigured is returned when no backend has usable credentials.
// This is a configuration error: it is raised before any network call and is
// never retried automatically.
var ErrNoProviderConfigured = errors.New(
	"no LLM provider configured: set OpenAI or Ollama credentials")

// ClientConfig is the mutable configuration a ResolvedProvider is applied to.
type ClientConfig struct {
	Provider   Provider
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int // seconds
	MaxRetries int
}

// ResolvedProvider carries everything captured at resolution time. Configure
// injects the captured credentials, base URL and model into a ClientConfig;
// it never re-reads settings.
type ResolvedProvider interface {
	Provider() Provider
	Model() string
	Configure(cfg *ClientConfig)
}

// OpenAI is the resolved configuration for the hosted OpenAI backend.
type OpenAI struct {
	APIKey    string
	BaseURL   string // optional API base override
	ModelName string
}

func (o OpenAI) Provider() Provider { return ProviderOpenAI }
func (o OpenAI) Model() string      { return o.ModelName }

func (o OpenAI) Configure(cfg *ClientConfig) {
	cfg.Provider = ProviderOpenAI
	cfg.Model = o.ModelName
	cfg.APIKey = o.APIKey
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
}

// Ollama is the resolved configuration for a local Ollama server.
type Ollama struct {
	BaseURL   string
	ModelName string
}

func (o Ollama) Provider() Provider { return ProviderOllama }
func (o Ollama) Model() string      { return o.ModelName }

func (o Ollama) Configure(cfg *ClientConfig) {
	cfg.Provider = ProviderOllama
	cfg.Model = o.ModelName
	cfg.BaseURL = o.BaseURL
}

// Resolve picks a backend from the snapshot, first match wins:
//  1. OpenAI, when an API key is configured.
//  2. Ollama, when a base URL is configured.
//  3. ErrNoProviderConfigured.
//
// The model is preferredModel when given, else the configured default for the
// chosen backend, else a hardcoded fallback.
func Resolve(snap settings.Snapshot, preferredModel string) (ResolvedProvider, error) {
	if snap.OpenAIAPIKey != "" {
		model := firstNonEmpty(preferredModel, snap.OpenAIModel, DefaultOpenAIModel)
		return OpenAI{
			APIKey:    snap.OpenAIAPIKey,
			BaseURL:   snap.OpenAIAPIBase,
			ModelName: model,
		}, nil
	}

	if snap.OllamaURL != "" {
		model := firstNonEmpty(preferredModel, snap.OllamaModel, DefaultOllamaModel)
		return Ollama{
			BaseURL:   snap.OllamaURL,
			ModelName: model,
		}, nil
	}

	return nil, ErrNoProviderConfigured
}

// ResolveWithCatalogDefault prefers the admin-selected default model from the
// AI model catalog when its backend has usable credentials, then falls back to
// the generic resolution order.
func ResolveWithCatalogDefault(snap settings.Snapshot) (ResolvedProvider, error) {
	if m := snap.DefaultModel; m != nil {
		switch Provider(m.Provider) {
		case ProviderOpenAI:
			if snap.OpenAIAPIKey != "" {
				return OpenAI{
					APIKey:    snap.OpenAIAPIKey,
					BaseURL:   snap.OpenAIAPIBase,
					ModelName: m.ModelIdentifier,
				}, nil
			}
		case ProviderOllama:
			if snap.OllamaURL != "" {
				return Ollama{
					BaseURL:   snap.OllamaURL,
					ModelName: m.ModelIdentifier,
				}, nil
			}
		}
	}

	return Resolve(snap, "")
}

// SupportsStructuredOutputs reports whether the resolved provider/model can
// honor a strict json_schema response format. Only specific OpenAI model
// families support it; everything else relies on prompt-engineered JSON.
func SupportsStructuredOutputs(rp ResolvedProvider) bool {
	if rp == nil || rp.Provider() != ProviderOpenAI {
		return false
	}

	model := strings.ToLower(rp.Model())
	return strings.Contains(model, "gpt-4o") || strings.Contains(model, "gpt-4-turbo")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
