package aitools

import (
	"context"
	"fmt"

	"github.com/skchakri/medi-vault/pkg/llm"
)

// EntityExtractorTool pulls names, dates, organizations, identifiers, and
// addresses out of free text as structured JSON.
type EntityExtractorTool struct {
	runtime *Runtime
}

func NewEntityExtractorTool(runtime *Runtime) *EntityExtractorTool {
	return &EntityExtractorTool{runtime: runtime}
}

func (t *EntityExtractorTool) GetInfo() Spec {
	return mustSpec("entity_extractor")
}

type entityExtractorArgs struct {
	Text       string `json:"text"`
	SchemaHint string `json:"schema_hint"`
}

func (t *EntityExtractorTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params entityExtractorArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.Text == "" {
		return nil, fmt.Errorf("text is required")
	}

	client, err := t.runtime.ResolveClient(ctx, "")
	if err != nil {
		return nil, err
	}

	resp, err := client.Chat(ctx, &llm.ChatRequest{
		SystemInstruction: entityExtractorSystemPrompt(params.SchemaHint),
		Messages:          []llm.Message{llm.UserMessage(llm.TextPart(params.Text))},
	})
	if err != nil {
		return nil, fmt.Errorf("entity extraction request failed: %w", err)
	}

	entities := map[string]any{}
	if parsed, ok := parseJSONObject(resp.Content); ok {
		if nested, ok := parsed["entities"].(map[string]any); ok {
			entities = nested
		} else {
			entities = parsed
		}
	}

	return map[string]any{"entities": entities}, nil
}

func entityExtractorSystemPrompt(schemaHint string) string {
	hint := schemaHint
	if hint == "" {
		hint = "none"
	}
	return fmt.Sprintf(`Extract entities as JSON under "entities".
Required keys: name, dob, issue_date, org, id_number, address.
Optional schema hint: %s.
Return JSON only.`, hint)
}
