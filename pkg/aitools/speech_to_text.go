package aitools

import (
	"context"
	"fmt"

	"github.com/skchakri/medi-vault/pkg/llm"
	"github.com/skchakri/medi-vault/pkg/settings"
)

// SpeechToTextTool transcribes an audio recording. Transcription is only
// available on the cloud backend; a missing API key is a configuration
// error, not a fallback to the local provider.
type SpeechToTextTool struct {
	runtime *Runtime
}

func NewSpeechToTextTool(runtime *Runtime) *SpeechToTextTool {
	return &SpeechToTextTool{runtime: runtime}
}

func (t *SpeechToTextTool) GetInfo() Spec {
	return mustSpec("speech_to_text")
}

type speechToTextArgs struct {
	FileBlobID string `json:"file_blob_id"`
	Path       string `json:"path"`
	Language   string `json:"language"`
	Model      string `json:"model"`
}

func (t *SpeechToTextTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params speechToTextArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	file, err := t.runtime.MaterializeInput(ctx, params.FileBlobID, params.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	snap, err := settings.TakeSnapshot(ctx, t.runtime.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider settings: %w", err)
	}
	if snap.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI key required for speech-to-text")
	}

	model := params.Model
	if model == "" {
		model = llm.DefaultWhisperModel
	}

	client, err := t.runtime.BuildClient(llm.OpenAI{
		APIKey:    snap.OpenAIAPIKey,
		BaseURL:   snap.OpenAIAPIBase,
		ModelName: model,
	})
	if err != nil {
		return nil, err
	}

	transcription, err := client.Transcribe(ctx, &llm.TranscriptionRequest{
		FilePath: file.Path,
		Model:    model,
		Language: params.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	var confidence any
	if transcription.Confidence != nil {
		confidence = *transcription.Confidence
	}

	segments := make([]map[string]any, 0, len(transcription.Segments))
	for _, segment := range transcription.Segments {
		segments = append(segments, map[string]any{
			"id":    segment.ID,
			"start": segment.Start,
			"end":   segment.End,
			"text":  segment.Text,
		})
	}

	return map[string]any{
		"text":       transcription.Text,
		"confidence": confidence,
		"segments":   segments,
	}, nil
}
