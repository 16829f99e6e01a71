// Package openai adapts the OpenAI Chat Completions API (wire format:
// role/content/tool_calls messages, {type:function} tool definitions) to the
// generic provider.Provider interface using the official client. The flatter
// wire shape means canonical blocks are split apart on the way out and
// reassembled on the way in.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/provider"
	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

// Options configure the OpenAI provider adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Provider wraps the OpenAI Chat Completions API behind provider.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

// New creates an OpenAI provider using the official client. The API key is
// taken from Options or the OPENAI_API_KEY environment variable; its absence
// surfaces as a ConfigError on the first Complete call, before any network
// traffic.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates an OpenAI provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		APIKey:              os.Getenv("OPENAI_API_KEY"),
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
		return nil, core.NewConfigError("openai: missing API key")
	}

	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return parseResponse(resp)
}

// buildParams assembles the Chat Completions request including tool
// definitions reshaped into the {type:function, function:{...}} form.
func (p *Provider) buildParams(req provider.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.InputSchema,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages flattens canonical messages into chat messages:
//   - assistant tool_use blocks become a tool_calls array with stringified
//     arguments, text blocks join into one content string
//   - user tool_result blocks each become a separate role:tool message, any
//     remaining text becomes its own user message
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Text()))
		case core.RoleAssistant:
			out = append(out, buildAssistantMessage(m))
		default:
			out = append(out, buildUserMessages(m)...)
		}
	}
	return out
}

func buildAssistantMessage(m core.Message) openai.ChatCompletionMessageParamUnion {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, b := range m.Blocks {
		tu, ok := b.(core.ToolUseBlock)
		if !ok {
			continue
		}
		args := "{}"
		if raw, err := json.Marshal(tu.Input); err == nil {
			args = string(raw)
		}
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tu.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tu.Name,
				Arguments: args,
			},
		})
	}

	if len(toolCalls) == 0 {
		return openai.AssistantMessage(m.Text())
	}

	assistant := &openai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}
	if text := m.Text(); text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func buildUserMessages(m core.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, b := range m.Blocks {
		if tr, ok := b.(core.ToolResultBlock); ok {
			out = append(out, openai.ToolMessage(tr.Content, tr.ToolUseID))
		}
	}
	if text := m.Text(); text != "" {
		out = append(out, openai.UserMessage(text))
	}
	return out
}

// parseResponse reassembles canonical blocks from the flat wire shape: each
// tool call becomes one tool_use block plus one tool call entry (arguments
// JSON parsed, repaired when malformed), non-empty content becomes a single
// text block, and a finish_reason of tool_calls normalizes to tool_use.
func parseResponse(resp *openai.ChatCompletion) (*provider.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, &core.ProtocolError{Provider: providerName, Body: "no choices returned"}
	}
	choice := resp.Choices[0]

	out := &provider.Response{
		ID:         resp.ID,
		StopReason: normalizeFinishReason(choice.FinishReason),
		Usage: provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if choice.Message.Content != "" {
		out.Content = append(out.Content, core.TextBlock{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		input := parseArguments(tc.Function.Arguments)
		out.Content = append(out.Content, core.ToolUseBlock{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return out, nil
}

// parseArguments decodes a tool call's JSON argument string, attempting a
// repair pass for the malformed JSON some models emit.
func parseArguments(args string) map[string]any {
	input := map[string]any{}
	if args == "" {
		return input
	}
	if err := json.Unmarshal([]byte(args), &input); err == nil {
		return input
	}
	if repaired, err := jsonrepair.JSONRepair(args); err == nil {
		_ = json.Unmarshal([]byte(repaired), &input)
	}
	return input
}

func normalizeFinishReason(reason string) string {
	if reason == "tool_calls" {
		return provider.StopReasonToolUse
	}
	if reason == "" {
		return "stop"
	}
	return reason
}

// wrapErr converts client failures into the module's protocol error carrying
// provider name, HTTP status and body context.
func wrapErr(err error) error {
	var apierr *openai.Error
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
