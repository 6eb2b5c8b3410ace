package aitools

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/skchakri/medi-vault/pkg/blob"
)

// FormAutofillTool renders the given field values into a fresh PDF and
// stores it as a new blob. The template reference selects which form is
// being filled; rendering is template-independent for now.
type FormAutofillTool struct {
	blobs blob.Store
}

func NewFormAutofillTool(blobs blob.Store) *FormAutofillTool {
	return &FormAutofillTool{blobs: blobs}
}

func (t *FormAutofillTool) GetInfo() Spec {
	return mustSpec("form_autofill")
}

type formAutofillArgs struct {
	TemplateID  string         `json:"template_id"`
	FileBlobID  string         `json:"file_blob_id"`
	FieldValues map[string]any `json:"field_values"`
}

func (t *FormAutofillTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params formAutofillArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.TemplateID == "" && params.FileBlobID == "" {
		return nil, fmt.Errorf("provide template_id or file_blob_id")
	}
	if len(params.FieldValues) == 0 {
		return nil, fmt.Errorf("field_values are required")
	}

	content, err := renderFilledForm(params.FieldValues)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("filled_form_%d.pdf", time.Now().Unix())
	info, err := t.blobs.Put(ctx, filename, "application/pdf", bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to store filled form: %w", err)
	}

	return map[string]any{
		"filled_pdf_blob_id": info.ID,
		"summary":            fmt.Sprintf("Filled %d fields", len(params.FieldValues)),
	}, nil
}

func renderFilledForm(fieldValues map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(fieldValues))
	for key := range fieldValues {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 10, "Filled Form", "", 1, "", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 12)
	for _, key := range keys {
		doc.CellFormat(0, 8, fmt.Sprintf("%s: %v", key, fieldValues[key]), "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
