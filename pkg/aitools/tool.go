package aitools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skchakri/medi-vault/pkg/observability"
	"github.com/skchakri/medi-vault/pkg/registry"
)

// Tool is one callable capability. GetInfo returns the tool's catalog entry;
// Execute consumes an argument map matching the entry's inputs and returns a
// map keyed by its outputs.
type Tool interface {
	GetInfo() Spec
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry indexes tools by catalog key.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// RegisterTool registers a tool under its catalog key, rejecting tools whose
// key is not in the catalog.
func (r *Registry) RegisterTool(tool Tool) error {
	key := tool.GetInfo().Key
	if _, ok := Lookup(key); !ok {
		return fmt.Errorf("tool key %s is not in the catalog", key)
	}
	return r.Register(key, tool)
}

// Execute looks up a tool by key and runs it inside a traced span.
func (r *Registry) Execute(ctx context.Context, key string, args map[string]any) (map[string]any, error) {
	tool, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", key)
	}

	tracer := observability.GetTracer("medivault.tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrToolKey, key))

	result, err := tool.Execute(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// mustSpec returns the catalog entry for a key known at compile time.
func mustSpec(key string) Spec {
	spec, ok := Lookup(key)
	if !ok {
		panic(fmt.Sprintf("tool key %s missing from catalog", key))
	}
	return spec
}

// parseJSONObject parses an LLM reply as a JSON object, tolerating markdown
// code fences. Returns ok=false rather than an error on unparsable input so
// tools can degrade to an empty result.
func parseJSONObject(raw string) (map[string]any, bool) {
	trimmed := stripCodeFence(raw)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
