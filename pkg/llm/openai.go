package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skchakri/medi-vault/pkg/httpclient"
	"github.com/skchakri/medi-vault/pkg/observability"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIClient struct {
	cfg        ClientConfig
	baseURL    string
	httpClient *httpclient.Client
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContentPart
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict,omitempty"`
}

type openAIChatResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

type openAITranscriptionResponse struct {
	Text     string                 `json:"text"`
	Segments []TranscriptionSegment `json:"segments"`
	Error    *openAIError           `json:"error,omitempty"`
}

func newOpenAIClient(cfg ClientConfig) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	hc := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	)

	return &openAIClient{cfg: cfg, baseURL: baseURL, httpClient: hc}, nil
}

func (c *openAIClient) Provider() Provider { return ProviderOpenAI }
func (c *openAIClient) Model() string      { return c.cfg.Model }

func (c *openAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	tracer := observability.GetTracer("medivault.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrProvider, string(ProviderOpenAI)),
			attribute.String(observability.AttrModel, c.cfg.Model),
		),
	)
	defer span.End()

	body := openAIChatRequest{
		Model:       c.cfg.Model,
		Messages:    c.buildMessages(req),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}
	if req.ResponseSchema != nil {
		name := req.ResponseSchemaName
		if name == "" {
			name = "response"
		}
		body.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:   name,
				Schema: req.ResponseSchema,
				Strict: true,
			},
		}
	}

	var response openAIChatResponse
	if err := c.postJSON(ctx, "/chat/completions", body, &response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response.Error != nil {
		apiErr := fmt.Errorf("OpenAI API error: %s", response.Error.Message)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		return nil, apiErr
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	span.SetAttributes(attribute.Int(observability.AttrTokensTotal, response.Usage.TotalTokens))

	return &ChatResponse{
		Content:     response.Choices[0].Message.Content,
		TotalTokens: response.Usage.TotalTokens,
		CostCents:   EstimateOpenAICostCents(response.Usage.TotalTokens, c.cfg.Model),
	}, nil
}

func (c *openAIClient) buildMessages(req *ChatRequest) []openAIMessage {
	messages := make([]openAIMessage, 0, len(req.Messages)+1)

	if req.SystemInstruction != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemInstruction})
	}

	for _, msg := range req.Messages {
		if len(msg.Parts) == 1 && msg.Parts[0].Type == ContentPartTypeText {
			messages = append(messages, openAIMessage{Role: msg.Role, Content: msg.Parts[0].Text})
			continue
		}

		parts := make([]openAIContentPart, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case ContentPartTypeText:
				parts = append(parts, openAIContentPart{Type: "text", Text: part.Text})
			case ContentPartTypeImageBase64:
				parts = append(parts, openAIContentPart{
					Type: "image_url",
					ImageURL: &openAIImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", part.MediaType, part.Data),
					},
				})
			}
		}
		messages = append(messages, openAIMessage{Role: msg.Role, Content: parts})
	}

	return messages
}

func (c *openAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	tracer := observability.GetTracer("medivault.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMEmbedding,
		trace.WithAttributes(
			attribute.String(observability.AttrProvider, string(ProviderOpenAI)),
			attribute.String(observability.AttrModel, c.cfg.Model),
		),
	)
	defer span.End()

	var response openAIEmbeddingResponse
	err := c.postJSON(ctx, "/embeddings", openAIEmbeddingRequest{
		Model: c.cfg.Model,
		Input: text,
	}, &response)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from OpenAI")
	}

	return response.Data[0].Embedding, nil
}

func (c *openAIClient) Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcription, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	model := req.Model
	if model == "" {
		model = DefaultWhisperModel
	}
	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A failed call can still carry a response body.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	var response openAITranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", response.Error.Message)
	}

	// Whisper does not report an overall confidence.
	return &Transcription{
		Text:       response.Text,
		Confidence: nil,
		Segments:   response.Segments,
	}, nil
}

func (c *openAIClient) postJSON(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A failed call can still carry a response body.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return fmt.Errorf("request to OpenAI failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode OpenAI response: %w", err)
	}

	return nil
}
