package core

// ToolCall is a normalized model-issued request to invoke a named tool.
// Unified across providers so downstream logic does not need per-provider
// branching. ID is provider-assigned and opaque.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the outcome of one ToolCall. Content is always serialized to
// a string: handler string results pass through unchanged, anything else is
// JSON-encoded by the router.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable tool to the model.
// InputSchema is a JSON-Schema-like object passed to the provider opaquely.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}
