// Package anthropic adapts the Anthropic Messages API (wire format: model,
// max_tokens, messages, tools, top-level system) to the generic
// provider.Provider interface using the official client.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/provider"
)

const providerName = "anthropic"

// Options configures the Anthropic provider adapter (model id, sampling,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind provider.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

// New creates an Anthropic provider using the official client. The API key is
// taken from Options or the ANTHROPIC_API_KEY environment variable; its
// absence surfaces as a ConfigError on the first Complete call, before any
// network traffic.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic provider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		APIKey:      os.Getenv("ANTHROPIC_API_KEY"),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return providerName }

// Complete implements provider.Provider with a single non-streaming round
// trip. Transport failures and non-2xx responses surface as
// *core.ProtocolError; nothing is retried here.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if p.opts.APIKey == "" {
		return nil, core.NewConfigError("anthropic: missing API key")
	}

	params := p.buildParams(req)

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return parseResponse(resp), nil
}

// buildParams translates the canonical conversation into Messages API
// parameters. Leading system messages are pulled out of the message array
// into the top-level system field.
func (p *Provider) buildParams(req provider.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}
	if system := systemBlocks(req.Messages); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

// systemBlocks extracts system-role text into top-level system blocks.
func systemBlocks(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role != core.RoleSystem {
			continue
		}
		for _, b := range m.Blocks {
			if tb, ok := b.(core.TextBlock); ok && tb.Text != "" {
				blocks = append(blocks, anthropic.TextBlockParam{Text: tb.Text})
			}
		}
	}
	return blocks
}

// buildMessages converts canonical messages to the Anthropic message array.
// System messages are skipped; they travel in the top-level system field.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			continue
		}
		content := buildContent(m.Blocks)
		if len(content) == 0 {
			continue
		}
		if m.Role == core.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out
}

// buildContent maps canonical blocks onto wire content blocks. The canonical
// model matches this provider's shape directly, so every block passes through
// one-to-one.
func buildContent(blocks []core.Block) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	for _, b := range blocks {
		switch block := b.(type) {
		case core.TextBlock:
			if block.Text != "" {
				content = append(content, anthropic.NewTextBlock(block.Text))
			}
		case core.ToolUseBlock:
			content = append(content, anthropic.NewToolUseBlock(block.ID, block.Input, block.Name))
		case core.ToolResultBlock:
			content = append(content, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
		}
	}
	return content
}

// buildTools passes tool definitions through as input schemas.
func buildTools(tools []core.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, def := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if def.InputSchema != nil {
			if properties, ok := def.InputSchema["properties"]; ok {
				schema.Properties = properties
			}
			schema.Required = requiredStrings(def.InputSchema["required"])
		}
		tu := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if def.Description != "" {
			tu.OfTool.Description = anthropic.String(def.Description)
		}
		out[i] = tu
	}
	return out
}

func requiredStrings(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// parseResponse maps the wire response back to the canonical representation:
// content passes through as-is, tool_use blocks additionally populate the
// tool call list, stop_reason passes through unchanged.
func parseResponse(resp *anthropic.Message) *provider.Response {
	out := &provider.Response{
		ID:         resp.ID,
		StopReason: string(resp.StopReason),
		Usage: provider.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	if out.StopReason == "" {
		out.StopReason = "end_turn"
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			if textBlock.Text != "" {
				out.Content = append(out.Content, core.TextBlock{Text: textBlock.Text})
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			input := map[string]any{}
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					_ = json.Unmarshal(raw, &input)
				}
			}
			out.Content = append(out.Content, core.ToolUseBlock{
				ID:    toolBlock.ID,
				Name:  toolBlock.Name,
				Input: input,
			})
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				ID:    toolBlock.ID,
				Name:  toolBlock.Name,
				Input: input,
			})
		}
	}
	return out
}

// wrapErr converts client failures into the module's protocol error carrying
// provider name, HTTP status and body context.
func wrapErr(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &core.ProtocolError{
			Provider:   providerName,
			StatusCode: apierr.StatusCode,
			Body:       apierr.Error(),
			Err:        err,
		}
	}
	return &core.ProtocolError{Provider: providerName, Err: err}
}
