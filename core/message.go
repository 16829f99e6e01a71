// Package core defines the canonical conversation model shared by every other
// package: messages, content blocks, tool calls/results/definitions and the
// error taxonomy. Provider adapters translate between this representation and
// their concrete wire formats; the agent loop, conversation memory and tool
// router operate on it exclusively.
package core

import "github.com/google/uuid"

// Role identifies the author of a message within a conversation.
type Role string

const (
	// RoleUser marks caller-authored input (including tool results).
	RoleUser Role = "user"
	// RoleAssistant marks model-authored output.
	RoleAssistant Role = "assistant"
	// RoleSystem marks the pinned system instruction.
	RoleSystem Role = "system"
)

// Block represents a polymorphic unit of message content. Concrete block
// types implement the unexported isBlock marker enabling a closed set.
type Block interface{ isBlock() }

// TextBlock is a plain text content segment.
type TextBlock struct {
	Text string `json:"text"`
}

// isBlock implements the Block interface for TextBlock.
func (TextBlock) isBlock() {}

// ToolUseBlock is a model-issued request to invoke a named tool. The ID is
// provider-assigned and must be echoed back unchanged in the matching
// ToolResultBlock of the immediately following user turn.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// isBlock implements the Block interface for ToolUseBlock.
func (ToolUseBlock) isBlock() {}

// ToolResultBlock answers exactly one ToolUseBlock from the preceding
// assistant turn. Content is always a string; structured handler results are
// JSON-encoded before they end up here.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// isBlock implements the Block interface for ToolResultBlock.
func (ToolResultBlock) isBlock() {}

// Message holds a role plus ordered content blocks. Once appended to a
// conversation a message is never mutated in place and block order is never
// changed.
type Message struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"content"`
}

// NewTextMessage builds a single-text-block message for the given role.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Blocks: []Block{TextBlock{Text: text}}}
}

// NewUserMessage builds a user message from plain text.
func NewUserMessage(text string) Message { return NewTextMessage(RoleUser, text) }

// NewSystemMessage builds a system message from plain text.
func NewSystemMessage(text string) Message { return NewTextMessage(RoleSystem, text) }

// NewAssistantMessage builds an assistant message from arbitrary blocks.
func NewAssistantMessage(blocks ...Block) Message {
	return Message{Role: RoleAssistant, Blocks: blocks}
}

// NewToolResultMessage wraps a batch of tool results into the single user
// message that answers the preceding assistant turn, preserving result order.
func NewToolResultMessage(results []ToolResult) Message {
	blocks := make([]Block, len(results))
	for i, r := range results {
		blocks[i] = ToolResultBlock{ToolUseID: r.ToolUseID, Content: r.Content, IsError: r.IsError}
	}
	return Message{Role: RoleUser, Blocks: blocks}
}

// Text returns the concatenation of all text blocks joined by newlines.
// Non-text blocks are skipped.
func (m Message) Text() string { return JoinText(m.Blocks) }

// ToolUses returns the tool-use blocks of the message preserving their
// original order.
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, b := range m.Blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// JoinText joins the text of all TextBlock entries with newlines.
func JoinText(blocks []Block) string {
	var out string
	for _, b := range blocks {
		tb, ok := b.(TextBlock)
		if !ok {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += tb.Text
	}
	return out
}

// NewID generates a unique identifier used for run and event correlation.
func NewID() string { return uuid.NewString() }
