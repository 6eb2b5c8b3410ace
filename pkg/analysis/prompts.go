package analysis

import (
	"fmt"

	"github.com/skchakri/medi-vault/pkg/credential"
)

const analysisSystemPrompt = `You are a meticulous assistant that reads certificates and returns structured metadata.
Use the provided schema and return clean, normalized values.
Titles should be concise (e.g., "Medical License"), and organizations should use their official names.
Prefer ISO-8601 format for dates, defaulting to the first day of the month when only MM/YYYY is present.
Use null for any field you cannot find.`

const extractionInstructions = `Extract the official credential title, issuing organization, credential/license number, and start/end dates.
Dates must use the YYYY-MM-DD format. If only month/year is present, assume the first day of that month.
If the data is missing or unclear, return null for that field.

Provide a concise summary of the certificate if possible and include any warnings (e.g., expired, missing signatures).

Also suggest 2-5 relevant tags/categories for this credential based on its type and content.
Examples: "Medical License", "Nursing", "CPR Certification", "Board Certification", "DEA License", "BLS", "ACLS", "Specialty Certification"

Return your response as JSON with this structure:
{
  "title": "string - Official credential name from the certificate",
  "start_date": "string in YYYY-MM-DD format or null",
  "end_date": "string in YYYY-MM-DD format or null",
  "issuing_organization": "string or null",
  "credential_number": "string or null",
  "document_summary": "string or null",
  "warnings": ["array of warning strings"],
  "suggested_tags": ["array of 2-5 relevant tag strings"]
}`

func userPrompt(cred *credential.Credential) string {
	return fmt.Sprintf(`Analyze the attached professional credential/certificate/license.

Existing details from the database (may be incomplete):
- Title: %s
- Notes: %s

%s`, orUnknown(cred.Title), orNone(cred.Notes), extractionInstructions)
}

func userPromptWithText(cred *credential.Credential, extractedText string) string {
	return fmt.Sprintf(`Analyze the following professional credential/certificate/license text extracted from a PDF.

Existing details from the database (may be incomplete):
- Title: %s
- Notes: %s

EXTRACTED TEXT FROM CERTIFICATE:
%s

%s`, orUnknown(cred.Title), orNone(cred.Notes), extractedText, extractionInstructions)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None provided"
	}
	return s
}
