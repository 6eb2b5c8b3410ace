package aitools

import (
	"github.com/skchakri/medi-vault/pkg/blob"
	"github.com/skchakri/medi-vault/pkg/credential"
	"github.com/skchakri/medi-vault/pkg/embedding"
	"github.com/skchakri/medi-vault/pkg/httpclient"
)

// Dependencies holds the collaborators the standard tool set is built from.
type Dependencies struct {
	Runtime     *Runtime
	Embeddings  embedding.Store
	Credentials credential.Store
	Blobs       blob.Store
	HTTP        *httpclient.Client

	// PhoneRegion is the default country for phone normalization.
	// Defaults to US.
	PhoneRegion string
}

// NewDefaultRegistry builds a registry holding every cataloged tool.
func NewDefaultRegistry(deps Dependencies) (*Registry, error) {
	r := NewRegistry()

	tools := []Tool{
		NewFileInspectorTool(deps.Runtime),
		NewPDFReaderTool(deps.Runtime),
		NewImageOCRTool(deps.Runtime),
		NewEmbeddingCreatorTool(deps.Runtime, deps.Embeddings),
		NewFieldQATool(deps.Runtime),
		NewMethodInvokerTool(deps.Credentials),
		NewHTTPCallerTool(deps.HTTP),
		NewDocumentClassifierTool(deps.Runtime),
		NewEntityExtractorTool(deps.Runtime),
		NewValidatorNormalizerTool(deps.PhoneRegion),
		NewSimilaritySearchTool(deps.Runtime, deps.Embeddings),
		NewSpeechToTextTool(deps.Runtime),
		NewFormAutofillTool(deps.Blobs),
		NewWebhookDispatcherTool(deps.HTTP),
	}

	for _, tool := range tools {
		if err := r.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}
