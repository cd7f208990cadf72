package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/sentry/internal/backoff"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Retry        backoff.Policy
	MaxAttempts  int
}

// AnthropicProvider adapts the Anthropic Messages API to Provider.
type AnthropicProvider struct {
	client  anthropic.Client
	cfg     AnthropicConfig
}

// NewAnthropicProvider builds a provider from cfg. APIKey is required;
// BaseURL overrides the default endpoint (used for proxies in tests).
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: anthropic api key required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Retry == (backoff.Policy{}) {
		cfg.Retry = backoff.Provider()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.cfg.DefaultModel }

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	result, err := backoff.Retry(ctx, p.cfg.Retry, p.cfg.MaxAttempts, func(attempt int) (Response, error) {
		return p.complete(ctx, model, req)
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: anthropic completion: %w", err)
	}
	return result.Value, nil
}

func (p *AnthropicProvider) complete(ctx context.Context, model string, req Request) (Response, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return Response{}, fmt.Errorf("converting messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return Response{}, fmt.Errorf("converting tools: %w", err)
		}
		params.Tools = tools
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, err
	}
	return toResponse(msg), nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

func convertMessages(msgs []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.ToolResult, m.IsToolError),
			))
		default:
			return nil, fmt.Errorf("unsupported role for anthropic: %s", m.Role)
		}
	}
	return out, nil
}

func convertTools(tools []ToolDef) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: %w", t.Name, err)
			}
		}
		out = append(out, anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
		}, t.Name))
	}
	return out, nil
}

func toResponse(msg *anthropic.Message) Response {
	resp := Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += v.Text
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    v.ID,
				Name:  v.Name,
				Input: v.Input,
			})
		}
	}
	resp.Usage = Usage{
		InputTokens:     int(msg.Usage.InputTokens),
		OutputTokens:    int(msg.Usage.OutputTokens),
		CacheReadTokens: int(msg.Usage.CacheReadInputTokens),
		CacheWriteTokens: int(msg.Usage.CacheCreationInputTokens),
	}
	return resp
}
