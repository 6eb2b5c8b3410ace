// Package analysis runs the credential document analysis pipeline: text
// extraction, schema-constrained inference, response normalization, and
// persistence of the extracted business fields.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skchakri/medi-vault/pkg/aitools"
	"github.com/skchakri/medi-vault/pkg/credential"
	"github.com/skchakri/medi-vault/pkg/llm"
	"github.com/skchakri/medi-vault/pkg/observability"
	"github.com/skchakri/medi-vault/pkg/settings"
)

// ErrNoFileAttached means the credential has no uploaded document. This is a
// precondition violation: the run fails immediately and is not retried.
var ErrNoFileAttached = errors.New("credential does not have a file attached")

// Pipeline analyzes one credential document per Run call. Runs are safe to
// retry: re-analysis overwrites the previous result.
type Pipeline struct {
	Runtime     *aitools.Runtime
	Credentials credential.Store
	Tags        credential.TagStore

	// Requests, when set, receives an audit record per LLM call.
	Requests llm.RequestLog
}

// Run analyzes the credential's attached document and persists the extracted
// fields. The returned result is what was persisted.
func (p *Pipeline) Run(ctx context.Context, credentialID int64) (*credential.AnalysisResult, error) {
	tracer := observability.GetTracer("analysis")
	ctx, span := tracer.Start(ctx, observability.SpanAnalysisRun)
	defer span.End()
	span.SetAttributes(attribute.Int64(observability.AttrCredentialID, credentialID))

	cred, err := p.Credentials.Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if !cred.FileAttached() {
		span.SetStatus(codes.Error, ErrNoFileAttached.Error())
		return nil, ErrNoFileAttached
	}

	snap, err := settings.TakeSnapshot(ctx, p.Runtime.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider settings: %w", err)
	}

	rp, err := llm.ResolveWithCatalogDefault(snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String(observability.AttrProvider, string(rp.Provider())),
		attribute.String(observability.AttrModel, rp.Model()),
	)

	client, err := p.Runtime.BuildClient(rp)
	if err != nil {
		return nil, err
	}

	req, err := p.buildRequest(ctx, cred, snap, rp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := client.Chat(ctx, req)
	p.audit(ctx, rp, resp, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}

	result := toAnalysisResult(normalizeResponse(resp.Content))

	if err := p.Credentials.UpdateAnalysis(ctx, cred.ID, result); err != nil {
		return nil, err
	}

	if err := p.applySuggestedTags(ctx, cred.ID, result.SuggestedTags); err != nil {
		slog.Warn("failed to apply suggested tags",
			"credential_id", cred.ID, "error", err)
	}

	return result, nil
}

// buildRequest assembles the structured-extraction chat request: extracted
// text for PDFs, the image itself for everything else. Strict schema output
// is enabled only when the resolved provider/model supports it; otherwise
// the prompt alone carries the JSON contract and the normalizer parses the
// reply.
func (p *Pipeline) buildRequest(ctx context.Context, cred *credential.Credential, snap settings.Snapshot, rp llm.ResolvedProvider) (*llm.ChatRequest, error) {
	temperature := 0.1
	req := &llm.ChatRequest{
		SystemInstruction: analysisSystemPrompt,
		Temperature:       &temperature,
	}
	if llm.SupportsStructuredOutputs(rp) {
		req.ResponseSchema = certificateSchema()
		req.ResponseSchemaName = "certificate_analysis"
	}

	if cred.FileContentType == "application/pdf" {
		text, err := p.extractPDFText(ctx, cred, snap)
		if err != nil {
			return nil, err
		}
		req.Messages = []llm.Message{
			llm.UserMessage(llm.TextPart(userPromptWithText(cred, text))),
		}
		return req, nil
	}

	file, err := p.Runtime.MaterializeInput(ctx, cred.FileBlobID, "")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	imagePart, err := aitools.EncodeFilePart(file.Path)
	if err != nil {
		return nil, err
	}
	req.Messages = []llm.Message{
		llm.UserMessage(llm.TextPart(userPrompt(cred)), imagePart),
	}
	return req, nil
}

// extractPDFText prefers the vision path, which reads scanned PDFs, and
// falls back to direct parsing for text-based ones. When both fail the run
// fails; there is no silent empty result.
func (p *Pipeline) extractPDFText(ctx context.Context, cred *credential.Credential, snap settings.Snapshot) (string, error) {
	text, visionErr := p.extractPDFWithVision(ctx, cred, snap)
	if visionErr == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if visionErr != nil {
		slog.Warn("vision PDF extraction failed, falling back to direct parse",
			"credential_id", cred.ID, "error", visionErr)
	}

	file, err := p.Runtime.MaterializeInput(ctx, cred.FileBlobID, "")
	if err != nil {
		return "", err
	}
	defer file.Close()

	parsed, _, _, err := aitools.ExtractPDFText(ctx, file.Path, nil)
	if err != nil {
		return "", fmt.Errorf("unable to extract text from PDF, the file may be corrupted or image-based: %w", err)
	}
	if strings.TrimSpace(parsed) == "" {
		return "", fmt.Errorf("unable to extract text from PDF, the file may be corrupted or image-based")
	}
	return collapseWhitespace(parsed), nil
}

func (p *Pipeline) extractPDFWithVision(ctx context.Context, cred *credential.Credential, snap settings.Snapshot) (string, error) {
	if snap.OpenAIAPIKey == "" {
		return "", fmt.Errorf("vision extraction requires an OpenAI key")
	}

	client, err := p.Runtime.BuildClient(llm.OpenAI{
		APIKey:    snap.OpenAIAPIKey,
		BaseURL:   snap.OpenAIAPIBase,
		ModelName: llm.VisionModel,
	})
	if err != nil {
		return "", err
	}

	file, err := p.Runtime.MaterializeInput(ctx, cred.FileBlobID, "")
	if err != nil {
		return "", err
	}
	defer file.Close()

	pdfPart, err := aitools.EncodeFilePart(file.Path)
	if err != nil {
		return "", err
	}

	resp, err := client.Chat(ctx, &llm.ChatRequest{
		MaxTokens: 4000,
		Messages: []llm.Message{
			llm.UserMessage(
				llm.TextPart("Extract all text content from this professional credential/certificate/license PDF document. Return the complete text exactly as it appears, preserving the document structure and layout."),
				pdfPart,
			),
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// normalizeResponse accepts whatever shape the model produced: a JSON object
// string, or arbitrary text. An unparsable string degrades to {title: raw}.
// The result always carries a warnings list.
func normalizeResponse(payload string) map[string]any {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &data); err != nil || data == nil {
		data = map[string]any{"title": payload}
	}

	if _, ok := data["warnings"]; !ok {
		data["warnings"] = []any{}
	}
	return data
}

// toAnalysisResult converts the normalized map to the typed result written
// onto the credential. Warnings is always non-nil.
func toAnalysisResult(data map[string]any) *credential.AnalysisResult {
	result := &credential.AnalysisResult{Warnings: []string{}}

	encoded, err := json.Marshal(data)
	if err == nil {
		_ = json.Unmarshal(encoded, result)
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	return result
}

func (p *Pipeline) applySuggestedTags(ctx context.Context, credentialID int64, suggested []string) error {
	if p.Tags == nil || len(suggested) == 0 {
		return nil
	}

	for _, name := range suggested {
		if credential.NormalizeTagName(name) == "" {
			continue
		}
		tag, err := p.Tags.FindOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := p.Tags.Attach(ctx, credentialID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) audit(ctx context.Context, rp llm.ResolvedProvider, resp *llm.ChatResponse, callErr error) {
	if p.Requests == nil {
		return
	}

	rec := &llm.RequestRecord{
		Provider:    string(rp.Provider()),
		Model:       rp.Model(),
		RequestType: "certificate_analysis",
		Success:     callErr == nil,
	}
	if resp != nil {
		rec.TotalTokens = resp.TotalTokens
		rec.CostCents = resp.CostCents
	}
	if callErr != nil {
		rec.ErrorText = callErr.Error()
	}

	if err := p.Requests.Record(ctx, rec); err != nil {
		slog.Warn("failed to record LLM request", "error", err)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
