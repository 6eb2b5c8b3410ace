// Package settings provides the runtime-editable key/value settings store and
// the AI model catalog. Provider credentials and model defaults live here so
// administrators can change them without a process restart.
package settings

import (
	"context"
	"os"
)

// Known setting keys.
const (
	KeyOpenAIAPIKey  = "openai_api_key"
	KeyOpenAIModel   = "openai_model"
	KeyOpenAIAPIBase = "openai_api_base"
	KeyOllamaURL     = "ollama_url"
	KeyOllamaModel   = "ollama_model"
)

// Store is the settings boundary. Get returns the empty string for unset keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	// DefaultModel returns the admin-selected default AI model, the first
	// active model when no default is set, or nil when the catalog is empty.
	DefaultModel(ctx context.Context) (*AIModel, error)
	SaveModel(ctx context.Context, model *AIModel) error
}

// AIModel is a catalog entry for an admin-managed model configuration.
type AIModel struct {
	ID              int64
	Name            string
	Provider        string // "openai" or "ollama"
	ModelIdentifier string
	IsDefault       bool
	Active          bool
}

// Snapshot captures every provider-relevant value at a single point in time.
// Provider resolution works exclusively from a Snapshot so that concurrent
// settings edits cannot change a call between resolution and use.
type Snapshot struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIAPIBase string
	OllamaURL     string
	OllamaModel   string
	DefaultModel  *AIModel
}

// TakeSnapshot reads all provider settings from the store, falling back to
// environment variables for each unset key.
func TakeSnapshot(ctx context.Context, store Store) (Snapshot, error) {
	snap := Snapshot{}

	var err error
	if snap.OpenAIAPIKey, err = getWithEnv(ctx, store, KeyOpenAIAPIKey, "OPENAI_API_KEY"); err != nil {
		return Snapshot{}, err
	}
	if snap.OpenAIModel, err = getWithEnv(ctx, store, KeyOpenAIModel, "OPENAI_MODEL"); err != nil {
		return Snapshot{}, err
	}
	if snap.OpenAIAPIBase, err = getWithEnv(ctx, store, KeyOpenAIAPIBase, "OPENAI_API_BASE"); err != nil {
		return Snapshot{}, err
	}
	if snap.OllamaURL, err = getWithEnv(ctx, store, KeyOllamaURL, "OLLAMA_URL"); err != nil {
		return Snapshot{}, err
	}
	if snap.OllamaModel, err = getWithEnv(ctx, store, KeyOllamaModel, "OLLAMA_MODEL"); err != nil {
		return Snapshot{}, err
	}

	if snap.DefaultModel, err = store.DefaultModel(ctx); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func getWithEnv(ctx context.Context, store Store, key, envVar string) (string, error) {
	value, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}
	return os.Getenv(envVar), nil
}
