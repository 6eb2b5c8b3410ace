package aitools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/skchakri/medi-vault/pkg/httpclient"
)

// allowedHTTPMethods are the only verbs the HTTP caller dispatches.
var allowedHTTPMethods = map[string]bool{
	"get":    true,
	"post":   true,
	"delete": true,
}

// HTTPCallerTool sends a GET, POST, or DELETE request with caller-supplied
// params and headers. GET and DELETE encode params into the query string;
// POST sends them as a JSON body.
type HTTPCallerTool struct {
	client *httpclient.Client
}

func NewHTTPCallerTool(client *httpclient.Client) *HTTPCallerTool {
	if client == nil {
		client = httpclient.New()
	}
	return &HTTPCallerTool{client: client}
}

func (t *HTTPCallerTool) GetInfo() Spec {
	return mustSpec("http_caller")
}

type httpCallerArgs struct {
	URL        string            `json:"url"`
	HTTPMethod string            `json:"http_method"`
	Params     map[string]any    `json:"params"`
	Headers    map[string]string `json:"headers"`
}

func (t *HTTPCallerTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params httpCallerArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	method := strings.ToLower(params.HTTPMethod)
	if !allowedHTTPMethods[method] {
		return nil, fmt.Errorf("unsupported http method: %s (allowed: get, post, delete)", params.HTTPMethod)
	}

	req, err := t.buildRequest(ctx, method, params)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// A failed call can still carry a response body.
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("http call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := map[string]string{}
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"body":    decodeBody(body, resp.Header.Get("Content-Type")),
		"headers": headers,
	}, nil
}

func (t *HTTPCallerTool) buildRequest(ctx context.Context, method string, params httpCallerArgs) (*http.Request, error) {
	target := params.URL
	var body io.Reader

	switch method {
	case "post":
		if len(params.Params) > 0 {
			encoded, err := json.Marshal(params.Params)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request params: %w", err)
			}
			body = bytes.NewReader(encoded)
		}
	default:
		if len(params.Params) > 0 {
			parsed, err := url.Parse(target)
			if err != nil {
				return nil, fmt.Errorf("invalid url: %w", err)
			}
			query := parsed.Query()
			for key, value := range params.Params {
				query.Set(key, fmt.Sprintf("%v", value))
			}
			parsed.RawQuery = query.Encode()
			target = parsed.String()
		}
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if method == "post" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range params.Headers {
		req.Header.Set(name, value)
	}

	return req, nil
}

// decodeBody returns parsed JSON for JSON responses, the raw string
// otherwise.
func decodeBody(body []byte, contentType string) any {
	if strings.Contains(contentType, "application/json") {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			return parsed
		}
	}
	return string(body)
}
