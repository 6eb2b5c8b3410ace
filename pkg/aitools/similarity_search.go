package aitools

import (
	"context"
	"fmt"

	"github.com/skchakri/medi-vault/pkg/embedding"
)

// DefaultTopK bounds similarity results when the caller gives no limit.
const DefaultTopK = 5

// SimilaritySearchTool embeds the query with the same provider/model
// convention as the Embedding Creator, scores every stored embedding via
// cosine similarity, and returns the top-K by descending score. Stored
// vectors of length zero and NaN scores are skipped, not fatal.
type SimilaritySearchTool struct {
	runtime    *Runtime
	embeddings embedding.Store
}

func NewSimilaritySearchTool(runtime *Runtime, embeddings embedding.Store) *SimilaritySearchTool {
	return &SimilaritySearchTool{runtime: runtime, embeddings: embeddings}
}

func (t *SimilaritySearchTool) GetInfo() Spec {
	return mustSpec("similarity_search")
}

type similaritySearchArgs struct {
	QueryText string         `json:"query_text"`
	TopK      int            `json:"top_k"`
	Filters   map[string]any `json:"filters"`
}

func (t *SimilaritySearchTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params similaritySearchArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.QueryText == "" {
		return nil, fmt.Errorf("query_text is required")
	}
	if params.TopK <= 0 {
		params.TopK = DefaultTopK
	}

	client, err := t.runtime.ResolveClient(ctx, embeddingModelName())
	if err != nil {
		return nil, err
	}

	queryVector, err := client.Embed(ctx, params.QueryText)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	candidates, err := t.embeddings.List(ctx, params.Filters)
	if err != nil {
		return nil, err
	}

	ranked := embedding.Rank(candidates, queryVector, params.TopK)

	results := make([]map[string]any, 0, len(ranked))
	for _, scored := range ranked {
		record := scored.Embedding
		entry := map[string]any{
			"id":       record.ID,
			"score":    scored.Score,
			"metadata": record.Metadata,
			"snippet":  record.Metadata["snippet"],
		}
		if record.Source != nil {
			entry["source_ref"] = map[string]any{"type": record.Source.Type, "id": record.Source.ID}
		}
		results = append(results, entry)
	}

	return map[string]any{"results": results}, nil
}
