package aitools

import (
	"context"
	"fmt"
	"os"

	"github.com/skchakri/medi-vault/pkg/embedding"
	"github.com/skchakri/medi-vault/pkg/llm"
)

// embeddingModelName is the model preference shared by the embedding tools:
// the environment override first, else the standard embedding model.
func embeddingModelName() string {
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		return model
	}
	return llm.DefaultEmbeddingModel
}

// EmbeddingCreatorTool computes a vector for a text via the resolved
// provider's embedding endpoint and persists it with its provenance. Cost is
// recorded as zero: embedding calls are not metered per-request by either
// backend today.
type EmbeddingCreatorTool struct {
	runtime    *Runtime
	embeddings embedding.Store
}

func NewEmbeddingCreatorTool(runtime *Runtime, embeddings embedding.Store) *EmbeddingCreatorTool {
	return &EmbeddingCreatorTool{runtime: runtime, embeddings: embeddings}
}

func (t *EmbeddingCreatorTool) GetInfo() Spec {
	return mustSpec("embedding_creator")
}

type embeddingCreatorArgs struct {
	Text       string         `json:"text"`
	SourceType string         `json:"source_type"`
	SourceID   int64          `json:"source_id"`
	ChunkID    string         `json:"chunk_id"`
	Metadata   map[string]any `json:"metadata"`
}

func (t *EmbeddingCreatorTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params embeddingCreatorArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	rp, err := t.runtime.ResolveProvider(ctx, embeddingModelName())
	if err != nil {
		return nil, err
	}

	client, err := t.runtime.BuildClient(rp)
	if err != nil {
		return nil, err
	}

	vector, err := client.Embed(ctx, params.Text)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	record := &embedding.Embedding{
		Provider:  string(rp.Provider()),
		Model:     rp.Model(),
		Vector:    vector,
		Dim:       len(vector),
		ChunkID:   params.ChunkID,
		Metadata:  metadata,
		CostCents: 0,
	}
	if params.SourceType != "" {
		record.Source = &embedding.SourceRef{Type: params.SourceType, ID: params.SourceID}
	}

	if err := t.embeddings.Save(ctx, record); err != nil {
		return nil, err
	}

	return map[string]any{
		"embedding_id": record.ID,
		"vector_dim":   record.Dim,
		"provider":     record.Provider,
		"model":        record.Model,
		"cost_cents":   record.CostCents,
	}, nil
}
