// Package node implements the builtin node types that graph documents can
// instantiate: caller-driven value injection, static configuration,
// terminal output, HTTP fetches and an embedded tool-calling agent.
package node

import (
	"github.com/hupe1980/agentflow/emitter"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/stream"
)

// Base carries the identity, output stream and logger shared by the
// builtin nodes. Embed it and emit through it.
type Base struct {
	id     string
	out    *stream.Source
	logger logging.Logger
}

// NewBase constructs the shared node core. A nil logger defaults to NoOp.
func NewBase(id string, logger logging.Logger) Base {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return Base{id: id, out: stream.NewSource(), logger: logger}
}

// ID returns the node's graph-unique identifier.
func (b *Base) ID() string { return b.id }

// Events returns the node's output event channel.
func (b *Base) Events() *emitter.Emitter { return b.out.Events() }

// Status reports the lifecycle status of the node's output stream.
func (b *Base) Status() stream.Status { return b.out.Status() }

// Pause marks the output stream paused.
func (b *Base) Pause() { b.out.Pause() }

// Resume marks the output stream open.
func (b *Base) Resume() { b.out.Resume() }

func (b *Base) emit(value map[string]any) { b.out.Emit(value) }

func (b *Base) fail(err error) {
	b.logger.Error("node failed", "node", b.id, "error", err)
	b.out.Fail(err)
}
