// Package embedding persists text embeddings with provenance and provides
// cosine-similarity ranking over them.
package embedding

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SourceRef is an optional polymorphic reference to the record a vector was
// derived from.
type SourceRef struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Embedding is a stored vector with provenance. Records are immutable after
// creation; they are removed only when their source record is deleted.
type Embedding struct {
	ID        int64
	Provider  string
	Model     string
	Vector    []float64
	Dim       int
	Source    *SourceRef
	ChunkID   string
	Metadata  map[string]any
	CostCents int
	CreatedAt time.Time
}

// Validate enforces the record invariants: a positive dimension matching the
// vector length, and non-empty provenance.
func (e *Embedding) Validate() error {
	if e.Provider == "" || e.Model == "" {
		return fmt.Errorf("provider and model are required")
	}
	if e.Dim <= 0 {
		return fmt.Errorf("dim must be positive, got %d", e.Dim)
	}
	if len(e.Vector) != e.Dim {
		return fmt.Errorf("vector length %d does not match dim %d", len(e.Vector), e.Dim)
	}
	return nil
}

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched lengths are truncated to the shorter vector. Returns 0.0 when
// either vector is empty or has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoredEmbedding pairs a stored embedding with its similarity to a query.
type ScoredEmbedding struct {
	Embedding *Embedding
	Score     float64
}

// Rank scores every candidate against the query vector and returns the top K
// by descending score. Zero-length stored vectors and NaN scores are skipped
// rather than failing the whole search.
func Rank(candidates []*Embedding, query []float64, topK int) []ScoredEmbedding {
	scored := make([]ScoredEmbedding, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Vector) == 0 {
			continue
		}
		score := CosineSimilarity(candidate.Vector, query)
		if math.IsNaN(score) {
			continue
		}
		scored = append(scored, ScoredEmbedding{Embedding: candidate, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
