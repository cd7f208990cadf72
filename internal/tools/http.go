package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/sentry/internal/toolregistry"
)

// HTTPGetTool performs a read-only HTTP GET. No writes, no process
// spawn, no mutation of anything the caller owns, so it defaults green.
type HTTPGetTool struct {
	Client *http.Client
}

// NewHTTPGetTool builds an HTTPGetTool with a bounded default client.
func NewHTTPGetTool() *HTTPGetTool {
	return &HTTPGetTool{Client: &http.Client{Timeout: 30 * time.Second}}
}

type httpGetArgs struct {
	URL string `json:"url"`
}

// HTTPGetSchema is the argument schema for HTTPGetTool.
var HTTPGetSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"url": {"type": "string", "description": "URL to fetch."}},
	"required": ["url"]
}`)

const httpGetMaxBody = 256 << 10

func (t *HTTPGetTool) Invoke(ctx context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a httpGetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, httpGetMaxBody))
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	if resp.StatusCode >= 400 {
		return toolregistry.Outcome{
			Status:   "error",
			Data:     fmt.Sprintf("http %d: %s", resp.StatusCode, string(body)),
			Metadata: map[string]any{"status": resp.StatusCode},
		}, nil
	}
	return toolregistry.Outcome{
		Status:   "success",
		Data:     string(body),
		Metadata: map[string]any{"status": resp.StatusCode},
	}, nil
}
