// Package workflow models the directed tool graph: named workflows holding
// tool-bound nodes and directed edges between them. The graph is data only;
// execution is left to an external orchestrator.
package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/skchakri/medi-vault/pkg/aitools"
)

// Status is a workflow's lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// UI is a node's editor canvas position.
type UI struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one tool invocation placeholder in the graph.
type Node struct {
	UID         string         `json:"uid"         validate:"required"`
	ToolKey     string         `json:"tool_key"    validate:"required"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	UI          UI             `json:"ui"`
}

// Edge is a directed dependency between two node UIDs.
type Edge struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// Workflow is a named, persisted tool graph.
type Workflow struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"        validate:"required"`
	Description string    `json:"description"`
	Status      Status    `json:"status"      validate:"required,oneof=draft active archived"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

var validate = validator.New()

// Validate checks structural integrity: a name, a known status, and
// array-typed nodes and edges. It deliberately does not check edge-endpoint
// references or UID uniqueness; those are advisory findings reported by
// Lint.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}
	return nil
}

// ParseJSON decodes a persisted workflow document. The schema enforces that
// nodes and edges are array-typed even when empty; a document missing either
// key, or carrying a non-array value, is rejected.
func ParseJSON(data []byte) (*Workflow, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	w := &Workflow{}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("invalid workflow document: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Lint reports advisory findings the strict validation does not enforce:
// duplicate node UIDs, edges referencing missing UIDs, and nodes bound to
// unknown or incompletely configured tools.
func (w *Workflow) Lint() []string {
	var findings []string

	seen := map[string]bool{}
	for _, node := range w.Nodes {
		if seen[node.UID] {
			findings = append(findings, fmt.Sprintf("duplicate node uid %q", node.UID))
		}
		seen[node.UID] = true

		spec, ok := aitools.Lookup(node.ToolKey)
		if !ok {
			findings = append(findings, fmt.Sprintf("node %q references unknown tool %q", node.UID, node.ToolKey))
			continue
		}
		if !spec.NodeConfigured(node.Config) {
			findings = append(findings, fmt.Sprintf("node %q is missing required inputs for tool %q", node.UID, node.ToolKey))
		}
	}

	for _, edge := range w.Edges {
		if !seen[edge.From] {
			findings = append(findings, fmt.Sprintf("edge references missing uid %q", edge.From))
		}
		if !seen[edge.To] {
			findings = append(findings, fmt.Sprintf("edge references missing uid %q", edge.To))
		}
	}

	return findings
}
