// Package aitools implements the callable AI capability catalog: a fixed
// set of tool specifications, the shared execution base every tool builds
// on, and the tool implementations themselves.
package aitools

import (
	"sort"
	"strings"
)

// Spec is an immutable catalog entry describing one tool's call contract.
// An input name ending in "?" is optional; required names never carry the
// suffix. Editor UIs rely on this convention to check node completeness.
type Spec struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
}

// catalog is the fixed tool table, built once at init and never mutated.
var catalog = map[string]Spec{
	"file_inspector": {
		Key:         "file_inspector",
		Name:        "File Inspector",
		Description: "Detects mime/type/extension and basic file metadata.",
		Inputs:      []string{"file_blob_id|path"},
		Outputs:     []string{"mime_type", "extension", "size_bytes", "checksum"},
	},
	"pdf_reader": {
		Key:         "pdf_reader",
		Name:        "PDF Reader",
		Description: "Extracts text and metadata from PDF files.",
		Inputs:      []string{"file_blob_id|path", "pages?"},
		Outputs:     []string{"text", "pages[]", "metadata"},
	},
	"image_ocr": {
		Key:         "image_ocr",
		Name:        "Image-to-Text OCR",
		Description: "Reads text from document images.",
		Inputs:      []string{"file_blob_id|path", "language?", "dpi_hint?"},
		Outputs:     []string{"text", "confidence", "blocks"},
	},
	"embedding_creator": {
		Key:         "embedding_creator",
		Name:        "Embedding Creator",
		Description: "Creates embeddings and stores vectors with metadata.",
		Inputs:      []string{"text", "source_ref", "chunk_id?", "metadata?"},
		Outputs:     []string{"embedding_id", "vector_dim", "provider", "model", "cost_cents"},
	},
	"field_qa": {
		Key:         "field_qa",
		Name:        "Field Q&A",
		Description: "Answers a list of prompts over a context text.",
		Inputs:      []string{"context_text", "fields[]"},
		Outputs:     []string{"answers{}", "confidences"},
	},
	"method_invoker": {
		Key:         "method_invoker",
		Name:        "Method Invoker",
		Description: "Maps argument hashes to whitelisted repository operations.",
		Inputs:      []string{"target", "operation", "args_hash"},
		Outputs:     []string{"return_value"},
	},
	"http_caller": {
		Key:         "http_caller",
		Name:        "HTTP Caller",
		Description: "Sends GET/POST/DELETE with params and headers.",
		Inputs:      []string{"url", "http_method", "params", "headers?"},
		Outputs:     []string{"status", "body", "headers"},
	},
	"document_classifier": {
		Key:         "document_classifier",
		Name:        "Document Classifier",
		Description: "Auto-tags documents by type (license, certificate, insurance card, etc.).",
		Inputs:      []string{"text|file_blob_id"},
		Outputs:     []string{"labels[]", "top_label"},
	},
	"entity_extractor": {
		Key:         "entity_extractor",
		Name:        "Entity Extractor",
		Description: "Extracts names, dates, organizations, IDs, addresses as structured JSON.",
		Inputs:      []string{"text", "schema_hint?"},
		Outputs:     []string{"entities"},
	},
	"validator_normalizer": {
		Key:         "validator_normalizer",
		Name:        "Validator/Normalizer",
		Description: "Normalizes fields (dates to ISO, phones to E.164, addresses cleaned).",
		Inputs:      []string{"raw_fields"},
		Outputs:     []string{"normalized_fields", "warnings", "errors"},
	},
	"similarity_search": {
		Key:         "similarity_search",
		Name:        "Similarity Search",
		Description: "Finds related passages/documents using stored embeddings.",
		Inputs:      []string{"query_text", "top_k?", "filters?"},
		Outputs:     []string{"results[]"},
	},
	"speech_to_text": {
		Key:         "speech_to_text",
		Name:        "Speech-to-Text",
		Description: "Transcribes audio recordings.",
		Inputs:      []string{"file_blob_id|path", "language?", "model?"},
		Outputs:     []string{"text", "confidence", "segments"},
	},
	"form_autofill": {
		Key:         "form_autofill",
		Name:        "Form Autofill",
		Description: "Populates a template and returns a filled PDF.",
		Inputs:      []string{"template_id|file_blob_id", "field_values"},
		Outputs:     []string{"filled_pdf_blob_id", "summary"},
	},
	"webhook_dispatcher": {
		Key:         "webhook_dispatcher",
		Name:        "Webhook/Action Dispatcher",
		Description: "Triggers external actions (email, alert, ticket, webhook).",
		Inputs:      []string{"action_type", "payload", "target"},
		Outputs:     []string{"status", "reference", "response"},
	},
}

// Lookup returns the catalog entry for a tool key.
func Lookup(key string) (Spec, bool) {
	spec, ok := catalog[key]
	return spec, ok
}

// Keys returns every catalog key in lexical order.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsOptionalInput reports whether an input name carries the optional marker.
func IsOptionalInput(name string) bool {
	return strings.HasSuffix(name, "?")
}

// RequiredInputs returns the spec's input names with optional ones removed.
func (s Spec) RequiredInputs() []string {
	var required []string
	for _, input := range s.Inputs {
		if !IsOptionalInput(input) {
			required = append(required, input)
		}
	}
	return required
}

// NodeConfigured reports whether a workflow node's config satisfies every
// input of the spec. Optional inputs are checked with the marker stripped;
// alternative inputs ("a|b") are satisfied by any one of the alternatives.
func (s Spec) NodeConfigured(config map[string]any) bool {
	for _, input := range s.Inputs {
		name := strings.TrimSuffix(input, "?")
		if IsOptionalInput(input) {
			continue
		}
		if !configHasInput(config, name) {
			return false
		}
	}
	return true
}

func configHasInput(config map[string]any, name string) bool {
	for _, alternative := range strings.Split(name, "|") {
		if value, ok := config[alternative]; ok && value != nil && value != "" {
			return true
		}
	}
	return false
}
