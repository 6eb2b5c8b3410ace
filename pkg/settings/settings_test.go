package settings

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, "sqlite")
	require.NoError(t, err)
	return store
}

func TestSQLStoreGetSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	value, err := store.Get(ctx, KeyOpenAIAPIKey)
	require.NoError(t, err)
	assert.Empty(t, value, "unset key reads as empty")

	require.NoError(t, store.Set(ctx, KeyOpenAIAPIKey, "sk-first"))
	require.NoError(t, store.Set(ctx, KeyOpenAIAPIKey, "sk-second"))

	value, err = store.Get(ctx, KeyOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-second", value, "second write wins")
}

func TestSQLStoreDefaultModel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	model, err := store.DefaultModel(ctx)
	require.NoError(t, err)
	assert.Nil(t, model, "empty catalog has no default")

	first := &AIModel{
		Name: "Mini", Provider: "openai", ModelIdentifier: "gpt-4o-mini", Active: true,
	}
	require.NoError(t, store.SaveModel(ctx, first))
	assert.NotZero(t, first.ID, "save must report the new row id")

	model, err = store.DefaultModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "gpt-4o-mini", model.ModelIdentifier,
		"first active model serves as default when none is marked")

	require.NoError(t, store.SaveModel(ctx, &AIModel{
		Name: "Local", Provider: "ollama", ModelIdentifier: "llama3.2",
		IsDefault: true, Active: true,
	}))

	model, err = store.DefaultModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "llama3.2", model.ModelIdentifier)
	assert.True(t, model.IsDefault)
}

func TestSQLStoreSingleDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveModel(ctx, &AIModel{
		Name: "A", Provider: "openai", ModelIdentifier: "gpt-4o",
		IsDefault: true, Active: true,
	}))
	require.NoError(t, store.SaveModel(ctx, &AIModel{
		Name: "B", Provider: "openai", ModelIdentifier: "gpt-4o-mini",
		IsDefault: true, Active: true,
	}))

	model, err := store.DefaultModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "gpt-4o-mini", model.ModelIdentifier,
		"marking a new default unsets the previous one")
}

func TestSQLStoreRejectsUnknownProvider(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveModel(context.Background(), &AIModel{
		Name: "X", Provider: "anthropic", ModelIdentifier: "claude",
	})
	require.Error(t, err)
}

func TestTakeSnapshotEnvFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OLLAMA_URL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_API_BASE", "")
	t.Setenv("OLLAMA_MODEL", "")

	snap, err := TakeSnapshot(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", snap.OpenAIAPIKey, "env fills unset keys")

	// A stored value beats the environment.
	require.NoError(t, store.Set(ctx, KeyOpenAIAPIKey, "sk-from-db"))
	snap, err = TakeSnapshot(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-db", snap.OpenAIAPIKey)
}
