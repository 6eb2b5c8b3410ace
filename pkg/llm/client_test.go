package llm

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		Provider: ProviderOpenAI,
		APIKey:   "sk-test",
		BaseURL:  server.URL,
		Model:    "gpt-4o",
		Timeout:  5,
	})
	require.NoError(t, err)
	return client, server
}

func TestOpenAIChat(t *testing.T) {
	var captured map[string]any
	client, _ := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"title":"License"}`}},
			},
			"usage": map[string]any{"total_tokens": 2000},
		})
	})

	temp := 0.1
	resp, err := client.Chat(context.Background(), &ChatRequest{
		SystemInstruction: "You extract fields.",
		Messages:          []Message{UserMessage(TextPart("analyze this"))},
		Temperature:       &temp,
		ResponseSchema:    map[string]any{"type": "object"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"License"}`, resp.Content)
	assert.Equal(t, 2000, resp.TotalTokens)
	// gpt-4o at 0.25 per 1K tokens: 2000 tokens = 50 cents.
	assert.Equal(t, 50, resp.CostCents)

	assert.Equal(t, "gpt-4o", captured["model"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIChatImagePartsBecomeDataURLs(t *testing.T) {
	var captured map[string]any
	client, _ := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
			"usage":   map[string]any{"total_tokens": 10},
		})
	})

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{UserMessage(
			TextPart("what is in this image?"),
			ImagePart("image/png", "aGVsbG8="),
		)},
	})
	require.NoError(t, err)

	messages := captured["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	url := image["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)
}

func TestOpenAIChatAPIError(t *testing.T) {
	client, _ := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key", "type": "auth"},
		})
	})

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{UserMessage(TextPart("hi"))},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAIEmbed(t *testing.T) {
	client, _ := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	})

	vector, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
}

func TestOpenAIEmbedEmptyVector(t *testing.T) {
	client, _ := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty embedding")
}

func TestNewClientRequiresKnownProvider(t *testing.T) {
	_, err := NewClient(ClientConfig{Provider: Provider("anthropic")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")

	_, err = NewClient(ClientConfig{Provider: ProviderOpenAI})
	require.Error(t, err) // missing API key
}

func TestEstimateOpenAICostCents(t *testing.T) {
	tests := []struct {
		model  string
		tokens int
		want   int
	}{
		{"gpt-4o-mini", 10000, 15},
		{"gpt-4o", 1000, 25},
		{"gpt-4-turbo", 1000, 300},
		{"gpt-3.5-turbo", 10000, 100},
		{"unknown-model", 1000, 1},
		{"gpt-4o", 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateOpenAICostCents(tt.tokens, tt.model), tt.model)
	}
}

func TestSQLRequestLogRecord(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	log, err := NewSQLRequestLog(db, "sqlite")
	require.NoError(t, err)

	err = log.Record(context.Background(), &RequestRecord{
		Provider:    "openai",
		Model:       "gpt-4o",
		RequestType: "certificate_analysis",
		Success:     true,
		TotalTokens: 1234,
		CostCents:   30,
	})
	require.NoError(t, err)

	var count int
	var model string
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*), MAX(model) FROM llm_requests").Scan(&count, &model))
	assert.Equal(t, 1, count)
	assert.Equal(t, "gpt-4o", model)
}
