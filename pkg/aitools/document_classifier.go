package aitools

import (
	"context"
	"fmt"
	"strings"

	"github.com/skchakri/medi-vault/pkg/llm"
)

// ClassifierLabels is the closed label set documents are classified against.
var ClassifierLabels = []string{
	"license", "certificate", "insurance_card", "id_card", "diploma", "transcript", "other",
}

// DocumentClassifierTool labels a document or text against the fixed label
// set. The top label is the first entry of the model's returned list, which
// may not be the highest-scored one.
type DocumentClassifierTool struct {
	runtime *Runtime
}

func NewDocumentClassifierTool(runtime *Runtime) *DocumentClassifierTool {
	return &DocumentClassifierTool{runtime: runtime}
}

func (t *DocumentClassifierTool) GetInfo() Spec {
	return mustSpec("document_classifier")
}

type documentClassifierArgs struct {
	Text       string `json:"text"`
	FileBlobID string `json:"file_blob_id"`
}

func (t *DocumentClassifierTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params documentClassifierArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Text == "" && params.FileBlobID == "" {
		return nil, fmt.Errorf("provide text or file_blob_id")
	}

	parts := []llm.ContentPart{}
	if params.Text != "" {
		parts = append(parts, llm.TextPart(params.Text))
	} else {
		parts = append(parts, llm.TextPart("Classify the attached document."))
	}

	if params.FileBlobID != "" {
		file, err := t.runtime.MaterializeInput(ctx, params.FileBlobID, "")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		filePart, err := EncodeFilePart(file.Path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, filePart)
	}

	client, err := t.runtime.ResolveClient(ctx, "")
	if err != nil {
		return nil, err
	}

	resp, err := client.Chat(ctx, &llm.ChatRequest{
		SystemInstruction: classifierSystemPrompt(),
		Messages:          []llm.Message{llm.UserMessage(parts...)},
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}

	labels := []any{}
	var topLabel any
	if parsed, ok := parseJSONObject(resp.Content); ok {
		if list, ok := parsed["labels"].([]any); ok {
			labels = list
		}
	}
	if len(labels) > 0 {
		topLabel = labelName(labels[0])
	}

	return map[string]any{
		"labels":    labels,
		"top_label": topLabel,
	}, nil
}

func classifierSystemPrompt() string {
	return fmt.Sprintf(`You are a document classifier. Choose labels from: %s.
Return JSON: { "labels": [ { "name": "<label>", "score": float } ] }`,
		strings.Join(ClassifierLabels, ", "))
}

func labelName(entry any) any {
	if m, ok := entry.(map[string]any); ok {
		if name, ok := m["name"]; ok {
			return name
		}
	}
	return entry
}
