package aitools

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skchakri/medi-vault/pkg/embedding"
	"github.com/skchakri/medi-vault/pkg/llm"
)

func fakePNG() io.Reader {
	return bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfakeimagedata"))
}

func newTestEmbeddingStore(t *testing.T) *embedding.SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := embedding.NewSQLStore(db, "sqlite")
	require.NoError(t, err)
	return store
}

func TestFileInspector(t *testing.T) {
	runtime, _ := newTestRuntime(t, nil)

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	tool := NewFileInspectorTool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{"path": path})
	require.NoError(t, err)

	assert.Equal(t, "text/plain", out["mime_type"])
	assert.Equal(t, "txt", out["extension"])
	assert.Equal(t, int64(11), out["size_bytes"])
	// SHA-256 of "hello world".
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", out["checksum"])
}

func TestFileInspectorMissingInput(t *testing.T) {
	runtime, _ := newTestRuntime(t, nil)
	tool := NewFileInspectorTool(runtime)

	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestFieldQAUnparsableOutputReturnsEmptyMaps(t *testing.T) {
	client := &stubClient{chatContent: "I could not produce JSON, sorry."}
	runtime, _ := newTestRuntime(t, client)

	tool := NewFieldQATool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{
		"context_text": "License #12345 issued to Dr. Smith",
		"fields": []any{
			map[string]any{"name": "license_number", "prompt": "The license number"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{}, out["answers"])
	assert.Equal(t, map[string]any{}, out["confidences"])
}

func TestFieldQAParsesAnswers(t *testing.T) {
	client := &stubClient{chatContent: `{"answers": {"license_number": "12345"}, "confidences": {"license_number": 0.9}}`}
	runtime, _ := newTestRuntime(t, client)

	tool := NewFieldQATool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{
		"context_text": "License #12345",
		"fields": []any{
			map[string]any{"name": "license_number", "prompt": "The license number"},
		},
	})
	require.NoError(t, err)

	answers := out["answers"].(map[string]any)
	assert.Equal(t, "12345", answers["license_number"])
	require.NotNil(t, client.lastChat)
	assert.Contains(t, client.lastChat.Messages[0].Parts[0].Text, "license_number")
}

func TestDocumentClassifierTopLabelIsFirstEntry(t *testing.T) {
	// The top label is the first returned entry even when a later entry
	// scores higher.
	client := &stubClient{chatContent: `{"labels": [{"name": "certificate", "score": 0.4}, {"name": "license", "score": 0.9}]}`}
	runtime, _ := newTestRuntime(t, client)

	tool := NewDocumentClassifierTool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{"text": "Board certification document"})
	require.NoError(t, err)

	assert.Equal(t, "certificate", out["top_label"])
	assert.Len(t, out["labels"], 2)
}

func TestDocumentClassifierUnparsableOutput(t *testing.T) {
	client := &stubClient{chatContent: "no json"}
	runtime, _ := newTestRuntime(t, client)

	tool := NewDocumentClassifierTool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{"text": "something"})
	require.NoError(t, err)

	assert.Equal(t, []any{}, out["labels"])
	assert.Nil(t, out["top_label"])
}

func TestEmbeddingCreatorPersistsVector(t *testing.T) {
	client := &stubClient{embedVector: []float64{0.1, 0.2, 0.3}}
	runtime, _ := newTestRuntime(t, client)
	store := newTestEmbeddingStore(t)

	tool := NewEmbeddingCreatorTool(runtime, store)
	out, err := tool.Execute(context.Background(), map[string]any{
		"text":        "hello",
		"source_type": "Credential",
		"source_id":   7,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out["vector_dim"])
	assert.Equal(t, "openai", out["provider"])
	assert.Equal(t, 0, out["cost_cents"])

	stored, err := store.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].Dim)
	assert.Len(t, stored[0].Vector, 3)
	require.NotNil(t, stored[0].Source)
	assert.Equal(t, int64(7), stored[0].Source.ID)
}

func TestSimilaritySearchRanksAndTruncates(t *testing.T) {
	client := &stubClient{embedVector: []float64{1, 0}}
	runtime, _ := newTestRuntime(t, client)
	store := newTestEmbeddingStore(t)
	ctx := context.Background()

	vectors := [][]float64{{1, 0}, {0, 1}, {0.9, 0.1}, {-1, 0}}
	for _, v := range vectors {
		require.NoError(t, store.Save(ctx, &embedding.Embedding{
			Provider: "openai", Model: "text-embedding-3-small",
			Vector: v, Dim: len(v),
			Metadata: map[string]any{"snippet": "chunk"},
		}))
	}

	tool := NewSimilaritySearchTool(runtime, store)
	out, err := tool.Execute(ctx, map[string]any{"query_text": "renewal deadline", "top_k": 2})
	require.NoError(t, err)

	results := out["results"].([]map[string]any)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0]["score"].(float64), results[1]["score"].(float64))
	assert.Equal(t, "chunk", results[0]["snippet"])
}

func TestValidatorNormalizer(t *testing.T) {
	tool := NewValidatorNormalizerTool("US")

	out, err := tool.Execute(context.Background(), map[string]any{
		"raw_fields": map[string]any{
			"date":    "March 5, 2024",
			"phone":   "(212) 555-0199",
			"address": "  123  Main   St  \n Suite 4 ",
			"custom":  "untouched",
		},
	})
	require.NoError(t, err)

	normalized := out["normalized_fields"].(map[string]any)
	assert.Equal(t, "2024-03-05", normalized["date"])
	assert.Equal(t, "+12125550199", normalized["phone"])
	assert.Equal(t, "123 Main St Suite 4", normalized["address"])
	assert.Equal(t, "untouched", normalized["custom"])
	assert.Empty(t, out["warnings"])
	assert.Empty(t, out["errors"])
}

func TestValidatorNormalizerInvalidValues(t *testing.T) {
	tool := NewValidatorNormalizerTool("US")

	out, err := tool.Execute(context.Background(), map[string]any{
		"raw_fields": map[string]any{
			"date":  "2023-13-40",
			"phone": "not a phone",
		},
	})
	require.NoError(t, err)

	normalized := out["normalized_fields"].(map[string]any)
	assert.Nil(t, normalized["date"])
	assert.Nil(t, normalized["phone"])
	assert.Equal(t, []string{"Could not parse date"}, out["warnings"])
	assert.Equal(t, []string{"Invalid phone"}, out["errors"])
}

func TestMethodInvokerRejectsUnknownOperation(t *testing.T) {
	tool := NewMethodInvokerTool(nil)

	_, err := tool.Execute(context.Background(), map[string]any{
		"target":    "credential",
		"operation": "delete_all",
	})
	assert.ErrorContains(t, err, "operation not allowed")
}

func TestMethodInvokerOperationsAreClosed(t *testing.T) {
	tool := NewMethodInvokerTool(nil)
	assert.Equal(t, []string{"credential.find", "credential.list_expiring"}, tool.Operations())
}

func TestWebhookDispatcherRejectsUnknownAction(t *testing.T) {
	tool := NewWebhookDispatcherTool(nil)

	_, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "launch",
		"payload":     map[string]any{},
		"target":      "ops",
	})
	assert.ErrorContains(t, err, "unsupported action_type")
}

func TestWebhookDispatcherNonWebhookActionReturnsReference(t *testing.T) {
	tool := NewWebhookDispatcherTool(nil)

	out, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "email",
		"payload":     map[string]any{"subject": "License expiring"},
		"target":      "admin@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 200, out["status"])
	assert.NotEmpty(t, out["reference"])
}

func TestFormAutofillStoresPDF(t *testing.T) {
	_, blobs := newTestRuntime(t, nil)
	tool := NewFormAutofillTool(blobs)

	out, err := tool.Execute(context.Background(), map[string]any{
		"template_id": "standard",
		"field_values": map[string]any{
			"name":    "Dr. Smith",
			"license": "A12345",
		},
	})
	require.NoError(t, err)

	blobID := out["filled_pdf_blob_id"].(string)
	require.NotEmpty(t, blobID)
	assert.Equal(t, "Filled 2 fields", out["summary"])

	info, err := blobs.Stat(context.Background(), blobID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Greater(t, info.ByteSize, int64(0))
}

func TestImageOCRReturnsNilConfidence(t *testing.T) {
	client := &stubClient{chatContent: "EXTRACTED TEXT"}
	runtime, blobs := newTestRuntime(t, client)

	info, err := blobs.Put(context.Background(), "scan.png", "image/png", fakePNG())
	require.NoError(t, err)

	tool := NewImageOCRTool(runtime)
	out, err := tool.Execute(context.Background(), map[string]any{"file_blob_id": info.ID})
	require.NoError(t, err)

	assert.Equal(t, "EXTRACTED TEXT", out["text"])
	assert.Nil(t, out["confidence"])
	assert.Equal(t, []any{}, out["blocks"])

	// The image travels as a base64 content part.
	require.NotNil(t, client.lastChat)
	parts := client.lastChat.Messages[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, llm.ContentPartTypeImageBase64, parts[1].Type)
}
