package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skchakri/medi-vault/pkg/httpclient"
	"github.com/skchakri/medi-vault/pkg/observability"
)

// Ollama's llama runner crashes when receiving concurrent embedding requests,
// so all embedding calls are serialized process-wide.
var ollamaEmbedMu sync.Mutex

type ollamaClient struct {
	cfg        ClientConfig
	baseURL    string
	httpClient *httpclient.Client
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"` // "json" or a schema object
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64-encoded
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func newOllamaClient(cfg ClientConfig) (*ollamaClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("Ollama base URL is required")
	}

	hc := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)

	return &ollamaClient{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: hc,
	}, nil
}

func (c *ollamaClient) Provider() Provider { return ProviderOllama }
func (c *ollamaClient) Model() string      { return c.cfg.Model }

func (c *ollamaClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	tracer := observability.GetTracer("medivault.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrProvider, string(ProviderOllama)),
			attribute.String(observability.AttrModel, c.cfg.Model),
		),
	)
	defer span.End()

	body := ollamaChatRequest{
		Model:    c.cfg.Model,
		Messages: c.buildMessages(req),
		Stream:   false,
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		opts := &ollamaOptions{NumPredict: req.MaxTokens}
		if req.Temperature != nil {
			opts.Temperature = *req.Temperature
		}
		body.Options = opts
	}
	if req.ResponseSchema != nil {
		// Ollama accepts a JSON schema directly as the format constraint.
		body.Format = req.ResponseSchema
	}

	var response ollamaChatResponse
	if err := c.postJSON(ctx, "/api/chat", body, &response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response.Error != "" {
		return nil, fmt.Errorf("ollama API error: %s", response.Error)
	}

	tokens := response.PromptEvalCount + response.EvalCount
	span.SetAttributes(attribute.Int(observability.AttrTokensTotal, tokens))

	return &ChatResponse{
		Content:     response.Message.Content,
		TotalTokens: tokens,
		CostCents:   0,
	}, nil
}

func (c *ollamaClient) buildMessages(req *ChatRequest) []ollamaMessage {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)

	if req.SystemInstruction != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.SystemInstruction})
	}

	for _, msg := range req.Messages {
		out := ollamaMessage{Role: msg.Role}
		var text []string
		for _, part := range msg.Parts {
			switch part.Type {
			case ContentPartTypeText:
				text = append(text, part.Text)
			case ContentPartTypeImageBase64:
				out.Images = append(out.Images, part.Data)
			}
		}
		out.Content = strings.Join(text, "\n")
		messages = append(messages, out)
	}

	return messages
}

func (c *ollamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	var response ollamaEmbedResponse
	err := c.postJSON(ctx, "/api/embeddings", ollamaEmbedRequest{
		Model:  c.cfg.Model,
		Prompt: text,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Error != "" {
		return nil, fmt.Errorf("ollama API error: %s", response.Error)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from Ollama")
	}

	return response.Embedding, nil
}

func (c *ollamaClient) Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcription, error) {
	return nil, fmt.Errorf("speech-to-text is not supported by the Ollama backend")
}

func (c *ollamaClient) postJSON(ctx context.Context, path string, body, out any) error {
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A failed call can still carry a response body.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return fmt.Errorf("request to Ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	return nil
}
