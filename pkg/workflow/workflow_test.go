package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() *Workflow {
	return &Workflow{
		Name:        "Credential intake",
		Description: "OCR, classify, extract",
		Status:      StatusDraft,
		Nodes: []Node{
			{UID: "n1", ToolKey: "image_ocr", Name: "OCR", Config: map[string]any{"file_blob_id": "b1"}, UI: UI{X: 10, Y: 20}},
			{UID: "n2", ToolKey: "document_classifier", Name: "Classify", Config: map[string]any{"text": "..."}, UI: UI{X: 200, Y: 20}},
			{UID: "n3", ToolKey: "field_qa", Name: "Extract", Config: map[string]any{"context_text": "...", "fields[]": "..."}, UI: UI{X: 400, Y: 20}},
		},
		Edges: []Edge{
			{From: "n1", To: "n2"},
			{From: "n2", To: "n3"},
		},
	}
}

func TestValidate(t *testing.T) {
	w := sampleWorkflow()
	assert.NoError(t, w.Validate())
}

func TestValidateRequiresName(t *testing.T) {
	w := sampleWorkflow()
	w.Name = ""
	assert.Error(t, w.Validate())
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	w := sampleWorkflow()
	w.Status = "paused"
	assert.Error(t, w.Validate())
}

func TestValidateDoesNotCheckEdgeEndpoints(t *testing.T) {
	// Dangling edges and duplicate uids pass strict validation; they are
	// reported by Lint instead.
	w := sampleWorkflow()
	w.Edges = append(w.Edges, Edge{From: "n3", To: "ghost"})
	w.Nodes = append(w.Nodes, Node{UID: "n1", ToolKey: "image_ocr"})

	assert.NoError(t, w.Validate())

	findings := w.Lint()
	assert.Contains(t, findings, `duplicate node uid "n1"`)
	assert.Contains(t, findings, `edge references missing uid "ghost"`)
}

func TestLintFlagsUnknownTool(t *testing.T) {
	w := sampleWorkflow()
	w.Nodes[0].ToolKey = "quantum_solver"

	findings := w.Lint()
	assert.Contains(t, findings, `node "n1" references unknown tool "quantum_solver"`)
}

func TestLintFlagsUnconfiguredNode(t *testing.T) {
	w := sampleWorkflow()
	w.Nodes[0].Config = map[string]any{}

	findings := w.Lint()
	assert.Contains(t, findings, `node "n1" is missing required inputs for tool "image_ocr"`)
}

func TestLintCleanWorkflow(t *testing.T) {
	assert.Empty(t, sampleWorkflow().Lint())
}

func TestParseJSONRoundTrip(t *testing.T) {
	original := sampleWorkflow()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseJSON(data)
	require.NoError(t, err)

	assert.Equal(t, original.Name, parsed.Name)
	assert.Equal(t, original.Nodes, parsed.Nodes)
	assert.Equal(t, original.Edges, parsed.Edges)
}

func TestParseJSONEmptyArraysAllowed(t *testing.T) {
	w, err := ParseJSON([]byte(`{"name": "Empty", "status": "draft", "nodes": [], "edges": []}`))
	require.NoError(t, err)
	assert.Empty(t, w.Nodes)
	assert.Empty(t, w.Edges)
}

func TestParseJSONRejectsNonArrayNodes(t *testing.T) {
	_, err := ParseJSON([]byte(`{"name": "Bad", "status": "draft", "nodes": {}, "edges": []}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"name": "Bad", "status": "draft", "nodes": [], "edges": null}`))
	assert.Error(t, err)
}

func TestParseJSONRejectsMissingArrays(t *testing.T) {
	_, err := ParseJSON([]byte(`{"name": "Bad", "status": "draft"}`))
	assert.Error(t, err)
}

func TestValidateDocumentRejectsBadStatus(t *testing.T) {
	err := ValidateDocument([]byte(`{"name": "X", "status": "running", "nodes": [], "edges": []}`))
	assert.Error(t, err)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, "sqlite")
	require.NoError(t, err)
	ctx := context.Background()

	w := sampleWorkflow()
	require.NoError(t, store.Save(ctx, w))
	require.NotZero(t, w.ID)

	got, err := store.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Name, got.Name)
	assert.Equal(t, w.Nodes, got.Nodes)
	assert.Equal(t, w.Edges, got.Edges)

	// Update in place.
	got.Status = StatusActive
	require.NoError(t, store.Save(ctx, got))

	refreshed, err := store.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, refreshed.Status)
}

func TestSQLStoreRejectsInvalidWorkflow(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, "sqlite")
	require.NoError(t, err)

	err = store.Save(context.Background(), &Workflow{Status: StatusDraft})
	assert.Error(t, err)
}
