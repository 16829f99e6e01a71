package openai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/provider"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider() *Provider {
	return New(func(o *Options) { o.APIKey = "test-key" })
}

func TestBuildMessagesFlattening(t *testing.T) {
	messages := []core.Message{
		core.NewSystemMessage("You are terse."),
		core.NewUserMessage("What's the weather?"),
		core.NewAssistantMessage(
			core.TextBlock{Text: "Checking"},
			core.ToolUseBlock{ID: "call_1", Name: "get_weather", Input: map[string]any{"city": "Berlin"}},
		),
		core.NewToolResultMessage([]core.ToolResult{{ToolUseID: "call_1", Content: "sunny"}}),
	}

	out := buildMessages(messages)

	require.Len(t, out, 4)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)

	// Assistant tool_use blocks become a tool_calls array.
	assistant := out[2].OfAssistant
	require.NotNil(t, assistant)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", assistant.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"city":"Berlin"}`, assistant.ToolCalls[0].Function.Arguments)

	// Each tool_result block becomes its own role:tool message.
	toolMsg := out[3].OfTool
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
}

func TestBuildMessagesToolResultPlusText(t *testing.T) {
	msg := core.Message{Role: core.RoleUser, Blocks: []core.Block{
		core.ToolResultBlock{ToolUseID: "call_1", Content: "42"},
		core.TextBlock{Text: "and also"},
	}}

	out := buildMessages([]core.Message{msg})

	// tool message first, remaining text as its own user message
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].OfTool)
	assert.NotNil(t, out[1].OfUser)
}

func TestTextMessageRoundTrip(t *testing.T) {
	raw := `{
		"id": "chatcmpl-1",
		"choices": [{"message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 2}
	}`
	var completion openai.ChatCompletion
	require.NoError(t, json.Unmarshal([]byte(raw), &completion))

	resp, err := parseResponse(&completion)
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, core.TextBlock{Text: "Hello there"}, resp.Content[0])
}

func TestParseResponseToolCalls(t *testing.T) {
	raw := `{
		"id": "chatcmpl-2",
		"choices": [{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_9",
					"type": "function",
					"function": {"name": "get_weather", "arguments": "{\"city\":\"Berlin\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 11, "completion_tokens": 7}
	}`
	var completion openai.ChatCompletion
	require.NoError(t, json.Unmarshal([]byte(raw), &completion))

	resp, err := parseResponse(&completion)
	require.NoError(t, err)

	// finish_reason tool_calls normalizes to tool_use.
	assert.Equal(t, provider.StopReasonToolUse, resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_9", resp.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"city": "Berlin"}, resp.ToolCalls[0].Input)
	require.Len(t, resp.Content, 1)
	_, isToolUse := resp.Content[0].(core.ToolUseBlock)
	assert.True(t, isToolUse)
	assert.Equal(t, int64(11), resp.Usage.InputTokens)
}

func TestParseArgumentsRepairsMalformedJSON(t *testing.T) {
	// Single quotes and unquoted keys show up in the wild; jsonrepair fixes them.
	input := parseArguments(`{city: 'Berlin'}`)
	assert.Equal(t, map[string]any{"city": "Berlin"}, input)

	assert.Equal(t, map[string]any{}, parseArguments(""))
}

func TestBuildParamsTools(t *testing.T) {
	p := newTestProvider()
	params := p.buildParams(provider.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		Tools: []core.ToolDefinition{{
			Name:        "get_weather",
			Description: "Get current weather",
			InputSchema: map[string]any{"type": "object"},
		}},
	})

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "get_weather", params.Tools[0].Function.Name)
}

func TestCompleteWithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := New()

	_, err := p.Complete(context.Background(), provider.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
	})

	var cfgErr *core.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
