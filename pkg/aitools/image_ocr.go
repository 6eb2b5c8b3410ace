package aitools

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/skchakri/medi-vault/pkg/llm"
)

// ImageOCRTool reads text out of a document image via a vision-capable
// model. Confidence is always nil and blocks always empty: the chat backends
// report neither, and callers must not assume they are present.
type ImageOCRTool struct {
	runtime *Runtime
}

func NewImageOCRTool(runtime *Runtime) *ImageOCRTool {
	return &ImageOCRTool{runtime: runtime}
}

func (t *ImageOCRTool) GetInfo() Spec {
	return mustSpec("image_ocr")
}

type imageOCRArgs struct {
	FileBlobID string `json:"file_blob_id"`
	Path       string `json:"path"`
	Language   string `json:"language"`
	DPIHint    int    `json:"dpi_hint"`
}

func (t *ImageOCRTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params imageOCRArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	file, err := t.runtime.MaterializeInput(ctx, params.FileBlobID, params.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	client, err := t.runtime.ResolveClient(ctx, "")
	if err != nil {
		return nil, err
	}

	imagePart, err := EncodeFilePart(file.Path)
	if err != nil {
		return nil, err
	}

	temperature := 0.1
	resp, err := client.Chat(ctx, &llm.ChatRequest{
		SystemInstruction: ocrSystemPrompt(params.Language, params.DPIHint),
		Temperature:       &temperature,
		Messages: []llm.Message{
			llm.UserMessage(
				llm.TextPart("Extract all visible text from this document image."),
				imagePart,
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}

	return map[string]any{
		"text":       resp.Content,
		"confidence": nil,
		"blocks":     []any{},
	}, nil
}

func ocrSystemPrompt(language string, dpiHint int) string {
	lang := language
	if lang == "" {
		lang = "unknown"
	}
	dpi := "unknown"
	if dpiHint > 0 {
		dpi = fmt.Sprintf("%d", dpiHint)
	}
	return fmt.Sprintf(`You are performing OCR on a scanned document. Return all text in reading order.
Keep line breaks between logical blocks. Language hint: %s.
DPI hint: %s.`, lang, dpi)
}

// EncodeFilePart reads a file and wraps it as a base64 content part with its
// sniffed media type, ready for a vision-capable chat call.
func EncodeFilePart(path string) (llm.ContentPart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.ContentPart{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	mediaType := http.DetectContentType(data[:sniffLen])

	return llm.ImagePart(mediaType, base64.StdEncoding.EncodeToString(data)), nil
}
