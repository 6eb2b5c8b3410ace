package aitools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/skchakri/medi-vault/pkg/httpclient"
)

// supportedActions are the action types the dispatcher accepts.
var supportedActions = map[string]bool{
	"email":   true,
	"alert":   true,
	"ticket":  true,
	"webhook": true,
}

// WebhookDispatcherTool triggers external actions. Webhook actions POST the
// payload as JSON to the target URL; the other action types are recorded and
// acknowledged with a generated reference, with real dispatchers wired in by
// the hosting application.
type WebhookDispatcherTool struct {
	client *httpclient.Client
}

func NewWebhookDispatcherTool(client *httpclient.Client) *WebhookDispatcherTool {
	if client == nil {
		client = httpclient.New()
	}
	return &WebhookDispatcherTool{client: client}
}

func (t *WebhookDispatcherTool) GetInfo() Spec {
	return mustSpec("webhook_dispatcher")
}

type webhookDispatcherArgs struct {
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload"`
	Target     string         `json:"target"`
}

func (t *WebhookDispatcherTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params webhookDispatcherArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if !supportedActions[params.ActionType] {
		return nil, fmt.Errorf("unsupported action_type: %s (supported: email, alert, ticket, webhook)", params.ActionType)
	}
	if params.Target == "" {
		return nil, fmt.Errorf("target is required")
	}

	if params.ActionType == "webhook" {
		return t.dispatchWebhook(ctx, params)
	}

	return map[string]any{
		"status":    200,
		"reference": uuid.NewString(),
		"response": map[string]any{
			"action":  params.ActionType,
			"target":  params.Target,
			"payload": params.Payload,
		},
	}, nil
}

func (t *WebhookDispatcherTool) dispatchWebhook(ctx context.Context, params webhookDispatcherArgs) (map[string]any, error) {
	encoded, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, params.Target, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// A failed call can still carry a response body.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("webhook dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	return map[string]any{
		"status":    resp.StatusCode,
		"reference": nil,
		"response":  decodeBody(body, resp.Header.Get("Content-Type")),
	}, nil
}
