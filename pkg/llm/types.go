package llm

import "context"

type ContentPartType string

const (
	ContentPartTypeText        ContentPartType = "text"
	ContentPartTypeImageBase64 ContentPartType = "image_base64"
)

// ContentPart is one piece of a message: text, or base64 file data with its
// media type (images, and PDFs on vision-capable models).
type ContentPart struct {
	Type      ContentPartType `json:"type"`
	Text      string          `json:"text,omitempty"`
	MediaType string          `json:"media_type,omitempty"`
	Data      string          `json:"data,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartTypeText, Text: text}
}

func ImagePart(mediaType, base64Data string) ContentPart {
	return ContentPart{Type: ContentPartTypeImageBase64, MediaType: mediaType, Data: base64Data}
}

type Message struct {
	Role  string        `json:"role"`
	Parts []ContentPart `json:"parts"`
}

func UserMessage(parts ...ContentPart) Message {
	return Message{Role: "user", Parts: parts}
}

// ChatRequest is the input for a chat completion call.
type ChatRequest struct {
	SystemInstruction string
	Messages          []Message
	Temperature       *float64
	MaxTokens         int

	// ResponseSchema enables strict structured output on backends that
	// support it. Ignored by backends that do not.
	ResponseSchema     map[string]any
	ResponseSchemaName string
}

// ChatResponse is the result of a chat completion call.
type ChatResponse struct {
	Content     string
	TotalTokens int
	CostCents   int
}

// TranscriptionRequest is the input for a speech-to-text call.
type TranscriptionRequest struct {
	FilePath string
	Model    string
	Language string
}

// TranscriptionSegment is one timed chunk of a transcription, when the
// backend reports segments.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the result of a speech-to-text call. Confidence is nil
// when the backend does not report one.
type Transcription struct {
	Text       string
	Confidence *float64
	Segments   []TranscriptionSegment
}

// Client is a configured connection to a single resolved backend.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, text string) ([]float64, error)
	Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcription, error)

	Provider() Provider
	Model() string
}
