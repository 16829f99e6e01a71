// Package provider defines the protocol boundary between the agent loop and
// concrete LLM backends. A Provider translates the canonical conversation
// (core.Message / core.Block) into its wire format, performs one model round
// trip and parses the response back into canonical blocks, extracted tool
// calls and a normalized stop reason.
package provider

import (
	"context"

	"github.com/hupe1980/agentflow/core"
)

// StopReasonToolUse is the normalized stop reason signalling that the model
// requested tool invocations. Adapters map provider-specific finish reasons
// onto it; all other reasons pass through unchanged.
const StopReasonToolUse = "tool_use"

// Request captures one outbound model call: the full ordered conversation
// (a leading system message included) plus the active tool definitions.
type Request struct {
	Messages []core.Message        `json:"messages"`
	Tools    []core.ToolDefinition `json:"tools,omitempty"`
}

// Usage carries provider token accounting for one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the parsed result of one model round trip.
type Response struct {
	ID         string          `json:"id"`
	Content    []core.Block    `json:"content"`
	ToolCalls  []core.ToolCall `json:"tool_calls,omitempty"`
	StopReason string          `json:"stop_reason"`
	Usage      Usage           `json:"usage"`
}

// Provider is the minimal interface the agent loop needs to drive generation.
// Complete performs exactly one round trip; it never retries internally and
// surfaces transport or non-2xx failures as *core.ProtocolError.
type Provider interface {
	// Name identifies the backend ("anthropic", "openai", "mock").
	Name() string

	// Complete sends the request and parses the provider response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// MockTurn scripts one MockProvider response.
type MockTurn struct {
	Response *Response
	Err      error
}

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Turns are consumed in order; with RepeatLast set the final turn
// answers every further call.
type MockProvider struct {
	turns      []MockTurn
	calls      int
	RepeatLast bool
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider constructs a MockProvider from scripted turns.
func NewMockProvider(turns ...MockTurn) *MockProvider {
	return &MockProvider{turns: turns}
}

// TextTurn scripts a terminal text response.
func TextTurn(text, stopReason string) MockTurn {
	return MockTurn{Response: &Response{
		ID:         core.NewID(),
		Content:    []core.Block{core.TextBlock{Text: text}},
		StopReason: stopReason,
	}}
}

// ToolUseTurn scripts a response requesting the given tool calls.
func ToolUseTurn(calls ...core.ToolCall) MockTurn {
	blocks := make([]core.Block, len(calls))
	for i, c := range calls {
		blocks[i] = core.ToolUseBlock{ID: c.ID, Name: c.Name, Input: c.Input}
	}
	return MockTurn{Response: &Response{
		ID:         core.NewID(),
		Content:    blocks,
		ToolCalls:  calls,
		StopReason: StopReasonToolUse,
	}}
}

// ErrTurn scripts a failing model call.
func ErrTurn(err error) MockTurn { return MockTurn{Err: err} }

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Calls reports how many times Complete has been invoked.
func (m *MockProvider) Calls() int { return m.calls }

// Complete implements Provider by replaying the scripted turns.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := m.calls
	m.calls++
	if idx >= len(m.turns) {
		if m.RepeatLast && len(m.turns) > 0 {
			idx = len(m.turns) - 1
		} else {
			return nil, &core.ProtocolError{Provider: m.Name(), Body: "mock provider exhausted"}
		}
	}
	turn := m.turns[idx]
	if turn.Err != nil {
		return nil, turn.Err
	}
	return turn.Response, nil
}
