package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/provider"
	"github.com/hupe1980/agentflow/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSimpleTurn(t *testing.T) {
	mock := provider.NewMockProvider(provider.TextTurn("Hi", "end_turn"))
	loop := New(mock)

	result, err := loop.Run(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi", result.Response)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, "end_turn", result.StopReason)
	assert.Equal(t, 1, mock.Calls())

	msgs := loop.Memory().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
}

func TestRunWithToolCall(t *testing.T) {
	mock := provider.NewMockProvider(
		provider.ToolUseTurn(core.ToolCall{ID: "tu_1", Name: "get_weather", Input: map[string]any{"city": "Berlin"}}),
		provider.TextTurn("It is sunny in Berlin.", "end_turn"),
	)
	loop := New(mock)
	loop.RegisterTools(tool.NewFunctionTool("get_weather", "weather lookup",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "sunny", nil
		}))

	result, err := loop.Run(context.Background(), "Weather in Berlin?")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, "end_turn", result.StopReason)
	assert.Equal(t, 2, mock.Calls())

	// The tool result lands as one user message with a single tool_result block.
	msgs := loop.Memory().Messages()
	require.Len(t, msgs, 4) // user, assistant(tool_use), user(tool_result), assistant
	toolMsg := msgs[2]
	assert.Equal(t, core.RoleUser, toolMsg.Role)
	require.Len(t, toolMsg.Blocks, 1)
	tr, ok := toolMsg.Blocks[0].(core.ToolResultBlock)
	require.True(t, ok)
	assert.Equal(t, "tu_1", tr.ToolUseID)
	assert.Equal(t, "sunny", tr.Content)
	assert.False(t, tr.IsError)
}

func TestRunIterationLimit(t *testing.T) {
	mock := provider.NewMockProvider(
		provider.ToolUseTurn(core.ToolCall{ID: "tu_1", Name: "noop", Input: map[string]any{}}),
	)
	mock.RepeatLast = true

	loop := New(mock, func(o *Options) { o.MaxIterations = 3 })
	loop.RegisterTools(tool.NewFunctionTool("noop", "does nothing",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) { return "ok", nil }))

	_, err := loop.Run(context.Background(), "go")

	var limitErr *core.IterationLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Contains(t, err.Error(), "Max iterations (3) reached")
	// Exactly 3 model calls were made, never a 4th.
	assert.Equal(t, 3, mock.Calls())
}

func TestRunToolErrorIsAbsorbed(t *testing.T) {
	mock := provider.NewMockProvider(
		provider.ToolUseTurn(core.ToolCall{ID: "tu_1", Name: "broken", Input: map[string]any{}}),
		provider.TextTurn("The tool failed, sorry.", "end_turn"),
	)
	loop := New(mock)
	loop.RegisterTools(tool.NewFunctionTool("broken", "always fails",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		}))

	result, err := loop.Run(context.Background(), "try it")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t, 2, result.Iterations)

	tr := loop.Memory().Messages()[2].Blocks[0].(core.ToolResultBlock)
	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, "Error: ")
	assert.Contains(t, tr.Content, "disk on fire")
}

func TestRunProviderErrorIsFatal(t *testing.T) {
	protoErr := &core.ProtocolError{Provider: "mock", StatusCode: 500, Body: "server error"}
	mock := provider.NewMockProvider(provider.ErrTurn(protoErr))
	loop := New(mock)

	_, err := loop.Run(context.Background(), "hello")

	var pErr *core.ProtocolError
	require.ErrorAs(t, err, &pErr)
	// The user turn accumulated before the failure stays queryable.
	require.Len(t, loop.Memory().Messages(), 1)
}

func TestRunPublishesPhaseEvents(t *testing.T) {
	mock := provider.NewMockProvider(
		provider.ToolUseTurn(core.ToolCall{ID: "tu_1", Name: "noop", Input: map[string]any{}}),
		provider.TextTurn("done", "end_turn"),
	)
	loop := New(mock)
	loop.RegisterTools(tool.NewFunctionTool("noop", "does nothing",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) { return "ok", nil }))

	var phases []Phase
	var iterations []int
	loop.Events().Subscribe(EventPhase, func(v any) {
		ev := v.(PhaseEvent)
		phases = append(phases, ev.Phase)
		iterations = append(iterations, ev.Iteration)
	})

	_, err := loop.Run(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, []Phase{
		PhaseLoopStart,
		PhaseModelResponse,
		PhaseToolsComplete,
		PhaseModelResponse,
	}, phases)
	assert.Equal(t, []int{0, 1, 1, 2}, iterations)
}

func TestRunAcceptsFullMessage(t *testing.T) {
	mock := provider.NewMockProvider(provider.TextTurn("ok", "end_turn"))
	loop := New(mock)

	_, err := loop.Run(context.Background(), core.NewUserMessage("structured input"))
	require.NoError(t, err)
	assert.Equal(t, "structured input", loop.Memory().Messages()[0].Text())
}

func TestRunRejectsUnsupportedInput(t *testing.T) {
	loop := New(provider.NewMockProvider())

	_, err := loop.Run(context.Background(), 42)

	var cfgErr *core.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunWithSystemPrompt(t *testing.T) {
	mock := provider.NewMockProvider(provider.TextTurn("ok", "end_turn"))
	loop := New(mock, func(o *Options) { o.SystemPrompt = "You are terse." })

	_, err := loop.Run(context.Background(), "hello")
	require.NoError(t, err)

	msgs := loop.Memory().Messages()
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
}
