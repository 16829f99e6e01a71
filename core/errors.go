package core

import "fmt"

// ConfigError reports an invalid or incomplete configuration (missing URL,
// missing API key, unknown node or provider type). Fatal: surfaced
// immediately, never retried.
type ConfigError struct {
	Message string `json:"message"`
}

func (e *ConfigError) Error() string { return "config error: " + e.Message }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// ProtocolError reports a failed model call: transport failure or a non-2xx
// provider response. It carries the provider name, HTTP status code and the
// response body text when available. Never retried internally.
type ProtocolError struct {
	Provider   string `json:"provider"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Err        error  `json:"-"`
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s api error", e.Provider)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap exposes the underlying transport error for errors.Is/As chains.
func (e *ProtocolError) Unwrap() error { return e.Err }

// IterationLimitError signals that the agent loop hit its configured
// iteration cap before the model produced a terminal turn. Fatal and
// non-resumable; conversation state accumulated so far stays queryable.
type IterationLimitError struct {
	Limit int `json:"limit"`
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("Max iterations (%d) reached", e.Limit)
}
