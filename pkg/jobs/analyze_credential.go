package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skchakri/medi-vault/pkg/aitools"
	"github.com/skchakri/medi-vault/pkg/analysis"
)

// AnalyzeCredentialJob runs the certificate analysis pipeline for one
// credential. Precondition failures (no file attached, missing input) are
// caller-fixable and fail without retry; backend errors are retried.
type AnalyzeCredentialJob struct {
	Pipeline     *analysis.Pipeline
	CredentialID int64
}

func (j *AnalyzeCredentialJob) Name() string {
	return fmt.Sprintf("analyze_credential:%d", j.CredentialID)
}

func (j *AnalyzeCredentialJob) Run(ctx context.Context) error {
	result, err := j.Pipeline.Run(ctx, j.CredentialID)
	if err != nil {
		if errors.Is(err, analysis.ErrNoFileAttached) || errors.Is(err, aitools.ErrMissingInput) {
			return Permanent(err)
		}
		return err
	}
	slog.Info("credential analysis completed",
		"credential_id", j.CredentialID, "warnings", len(result.Warnings))
	return nil
}
