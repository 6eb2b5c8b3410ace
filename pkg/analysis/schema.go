package analysis

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// CertificateAnalysis is the structured shape the model is asked to return.
// Nullable fields use pointers so a missing value round-trips as null.
type CertificateAnalysis struct {
	Title               string   `json:"title" jsonschema:"description=Official credential name from the certificate"`
	StartDate           *string  `json:"start_date" jsonschema:"description=Issue or start date in YYYY-MM-DD"`
	EndDate             *string  `json:"end_date" jsonschema:"description=Expiration or renewal date in YYYY-MM-DD"`
	IssuingOrganization *string  `json:"issuing_organization" jsonschema:"description=Organization or authority that issued the credential"`
	CredentialNumber    *string  `json:"credential_number" jsonschema:"description=Credential/license/certificate identifier"`
	DocumentSummary     *string  `json:"document_summary" jsonschema:"description=Short summary of the certificate contents"`
	Warnings            []string `json:"warnings,omitempty" jsonschema:"description=Important warnings found on the document"`
	SuggestedTags       []string `json:"suggested_tags,omitempty" jsonschema:"description=Relevant tags/categories for this credential"`
}

// certificateSchema reflects CertificateAnalysis into the JSON-schema map
// sent to backends that support strict structured outputs.
func certificateSchema() map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&CertificateAnalysis{})

	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil
	}
	return out
}
