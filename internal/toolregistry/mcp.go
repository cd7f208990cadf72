package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// MCPServerConfig describes an external MCP tool server reachable over
// stdio. Discovered tools are bridged into a Registry as dynamic tools,
// so they always start red regardless of whatever the server claims.
type MCPServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// mcpHandler bridges Registry.Invoke calls to a single tool on a
// connected MCP server.
type mcpHandler struct {
	mu     *sync.Mutex
	client *client.Client
	name   string
}

func (h *mcpHandler) Invoke(ctx context.Context, args json.RawMessage) (Outcome, error) {
	var argMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argMap); err != nil {
			return Outcome{Status: "error"}, fmt.Errorf("toolregistry: mcp args not an object: %w", err)
		}
	}

	h.mu.Lock()
	c := h.client
	h.mu.Unlock()
	if c == nil {
		return Outcome{Status: "error"}, fmt.Errorf("toolregistry: mcp client for %s not connected", h.name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = h.name
	req.Params.Arguments = argMap

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return Outcome{Status: "error"}, fmt.Errorf("toolregistry: mcp call %s: %w", h.name, err)
	}

	var sb []byte
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			sb = append(sb, []byte(tc.Text)...)
		}
	}
	status := "success"
	if resp.IsError {
		status = "error"
	}
	return Outcome{Status: status, Data: string(sb)}, nil
}

// BridgeMCPServer connects to an MCP server over stdio, lists its
// tools, and registers each as a dynamic (red) tool on r. The
// returned closer shuts the subprocess connection down; callers
// should hold it for the lifetime of the registered tools.
func BridgeMCPServer(ctx context.Context, r *Registry, cfg MCPServerConfig) (func() error, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("toolregistry: mcp server %s: command required", cfg.Name)
	}

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("toolregistry: creating mcp client %s: %w", cfg.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("toolregistry: starting mcp client %s: %w", cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "sentry", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("toolregistry: initializing mcp server %s: %w", cfg.Name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("toolregistry: listing mcp tools for %s: %w", cfg.Name, err)
	}

	var mu sync.Mutex
	for _, t := range listResp.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage(`{}`)
		}
		spec := orchtypes.ToolSpec{
			Name:        fmt.Sprintf("mcp:%s:%s", cfg.Name, t.Name),
			Description: t.Description,
			InputSchema: schema,
			Source:      "mcp:" + cfg.Name,
		}
		h := &mcpHandler{mu: &mu, client: mcpClient, name: t.Name}
		if err := r.Register(spec, h, true); err != nil {
			mcpClient.Close()
			return nil, fmt.Errorf("toolregistry: registering mcp tool %s: %w", spec.Name, err)
		}
	}

	return mcpClient.Close, nil
}
