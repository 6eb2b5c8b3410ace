package aitools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogEveryEntryHasOutputs(t *testing.T) {
	keys := Keys()
	require.Len(t, keys, 14)

	for _, key := range keys {
		spec, ok := Lookup(key)
		require.True(t, ok)
		assert.Equal(t, key, spec.Key)
		assert.NotEmpty(t, spec.Name, "tool %s", key)
		assert.NotEmpty(t, spec.Outputs, "tool %s", key)
	}
}

func TestCatalogOptionalInputConvention(t *testing.T) {
	// Required names never end in "?", optional ones always do. The
	// suffix is the only optionality marker.
	for _, key := range Keys() {
		spec, _ := Lookup(key)
		for _, input := range spec.Inputs {
			if IsOptionalInput(input) {
				assert.True(t, strings.HasSuffix(input, "?"))
			} else {
				assert.False(t, strings.Contains(input, "?"), "tool %s input %s", key, input)
			}
		}
	}
}

func TestLookupUnknownKey(t *testing.T) {
	_, ok := Lookup("no_such_tool")
	assert.False(t, ok)
}

func TestRequiredInputs(t *testing.T) {
	spec, _ := Lookup("pdf_reader")
	assert.Equal(t, []string{"file_blob_id|path"}, spec.RequiredInputs())
}

func TestNodeConfigured(t *testing.T) {
	spec, _ := Lookup("pdf_reader")

	assert.False(t, spec.NodeConfigured(map[string]any{}))
	assert.False(t, spec.NodeConfigured(map[string]any{"pages": []int{1}}))

	// Either alternative of "file_blob_id|path" satisfies the input.
	assert.True(t, spec.NodeConfigured(map[string]any{"file_blob_id": "b1"}))
	assert.True(t, spec.NodeConfigured(map[string]any{"path": "/tmp/x.pdf"}))

	// Empty and nil values do not count as configured.
	assert.False(t, spec.NodeConfigured(map[string]any{"path": ""}))
	assert.False(t, spec.NodeConfigured(map[string]any{"path": nil}))
}

func TestNodeConfiguredOptionalInputsIgnored(t *testing.T) {
	spec, _ := Lookup("similarity_search")
	assert.True(t, spec.NodeConfigured(map[string]any{"query_text": "renewal"}))
}

func TestParseJSONObject(t *testing.T) {
	parsed, ok := parseJSONObject(`{"answers": {"a": "1"}}`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": "1"}, parsed["answers"])

	_, ok = parseJSONObject("not json at all")
	assert.False(t, ok)

	parsed, ok = parseJSONObject("```json\n{\"labels\": []}\n```")
	require.True(t, ok)
	assert.Equal(t, []any{}, parsed["labels"])
}
