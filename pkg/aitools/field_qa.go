package aitools

import (
	"context"
	"fmt"
	"strings"

	"github.com/skchakri/medi-vault/pkg/llm"
)

// FieldQATool answers a list of field prompts over a context text in a
// single LLM call. On unparsable model output it returns empty answer and
// confidence maps rather than failing; downstream consumers treat a fully
// empty result as "extraction failed", not "no fields requested".
type FieldQATool struct {
	runtime *Runtime
}

func NewFieldQATool(runtime *Runtime) *FieldQATool {
	return &FieldQATool{runtime: runtime}
}

func (t *FieldQATool) GetInfo() Spec {
	return mustSpec("field_qa")
}

type fieldDescriptor struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

type fieldQAArgs struct {
	ContextText string            `json:"context_text"`
	Fields      []fieldDescriptor `json:"fields"`
}

const fieldQASystemPrompt = `You extract answers for each field as JSON with shape:
{
  "answers": { "field_name": "value" },
  "confidences": { "field_name": 0-1 float }
}
If unclear, set value to null and confidence 0.`

func (t *FieldQATool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params fieldQAArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.ContextText == "" {
		return nil, fmt.Errorf("context_text is required")
	}
	if len(params.Fields) == 0 {
		return nil, fmt.Errorf("fields are required")
	}

	client, err := t.runtime.ResolveClient(ctx, "")
	if err != nil {
		return nil, err
	}

	temperature := 0.0
	resp, err := client.Chat(ctx, &llm.ChatRequest{
		SystemInstruction: fieldQASystemPrompt,
		Temperature:       &temperature,
		Messages: []llm.Message{
			llm.UserMessage(llm.TextPart(buildFieldQAPrompt(params.ContextText, params.Fields))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("field extraction request failed: %w", err)
	}

	answers := map[string]any{}
	confidences := map[string]any{}
	if parsed, ok := parseJSONObject(resp.Content); ok {
		if m, ok := parsed["answers"].(map[string]any); ok {
			answers = m
		}
		if m, ok := parsed["confidences"].(map[string]any); ok {
			confidences = m
		}
	}

	return map[string]any{
		"answers":     answers,
		"confidences": confidences,
	}, nil
}

func buildFieldQAPrompt(contextText string, fields []fieldDescriptor) string {
	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		lines = append(lines, fmt.Sprintf("- %s: %s", field.Name, field.Prompt))
	}

	return fmt.Sprintf(`Context:
%s

Extract the following fields:
%s

Return JSON only.`, contextText, strings.Join(lines, "\n"))
}
