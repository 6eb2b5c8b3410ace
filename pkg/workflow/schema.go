package workflow

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the persisted workflow JSON shape. Nodes and edges must
// be array-typed even when empty; edge endpoints are strings but their
// referential integrity is a Lint concern, not a schema one.
const documentSchema = `{
  "type": "object",
  "required": ["name", "status", "nodes", "edges"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "status": {"type": "string", "enum": ["draft", "active", "archived"]},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["uid", "tool_key"],
        "properties": {
          "uid": {"type": "string", "minLength": 1},
          "tool_key": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "config": {"type": "object"},
          "ui": {
            "type": "object",
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks a raw persisted workflow document against the
// schema above.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid workflow document: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid workflow document: %s", strings.Join(problems, "; "))
	}
	return nil
}
