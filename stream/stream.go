// Package stream layers two capability roles on top of the emitter: a Source
// that produces values with an open/paused lifecycle, and a Sink that accepts
// values and republishes them as its own. Connecting a source to a sink wires
// the value, error and end-of-stream signals together.
package stream

import (
	"sync"

	"github.com/hupe1980/agentflow/emitter"
)

// Event names published by sources and sinks. Errors travel on
// emitter.EventError.
const (
	// EventData carries a produced or accepted value.
	EventData = "data"
	// EventEnd signals end-of-stream.
	EventEnd = "end"
)

// Status is the lifecycle status of a source.
type Status string

const (
	// StatusPaused marks a source that is not flowing. Advisory bookkeeping:
	// pausing does not gate delivery and provides no backpressure.
	StatusPaused Status = "paused"
	// StatusOpen marks a flowing source.
	StatusOpen Status = "open"
)

// Receiver is the sink-side capability set: accept a value, take an error,
// observe end-of-stream.
type Receiver interface {
	Accept(value any)
	Fail(err error)
	End()
}

// Emits is implemented by anything exposing an event channel for produced
// values.
type Emits interface {
	Events() *emitter.Emitter
}

// Controllable is implemented by sources whose flow status can be toggled.
type Controllable interface {
	Pause()
	Resume()
	Status() Status
}

// Source produces values. It starts paused; Connect transitions it to open.
type Source struct {
	mu     sync.Mutex
	status Status
	events *emitter.Emitter
}

var _ Emits = (*Source)(nil)
var _ Controllable = (*Source)(nil)

// NewSource constructs a paused source.
func NewSource() *Source {
	return &Source{status: StatusPaused, events: emitter.New()}
}

// Events returns the source's event channel.
func (s *Source) Events() *emitter.Emitter { return s.events }

// Status reports the current lifecycle status.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Resume marks the source open.
func (s *Source) Resume() {
	s.mu.Lock()
	s.status = StatusOpen
	s.mu.Unlock()
}

// Pause marks the source paused.
func (s *Source) Pause() {
	s.mu.Lock()
	s.status = StatusPaused
	s.mu.Unlock()
}

// Emit publishes a value on the source's data event.
func (s *Source) Emit(value any) { s.events.Publish(EventData, value) }

// Fail publishes an error on the source's error event.
func (s *Source) Fail(err error) { s.events.Publish(emitter.EventError, err) }

// End publishes the end-of-stream signal.
func (s *Source) End() { s.events.Publish(EventEnd, nil) }

// Connect subscribes the receiver's accept/error/end operations to this
// source's events and resumes the source.
func (s *Source) Connect(r Receiver) {
	s.events.Subscribe(EventData, func(v any) { r.Accept(v) })
	s.events.Subscribe(emitter.EventError, func(v any) {
		if err, ok := v.(error); ok {
			r.Fail(err)
		}
	})
	s.events.Subscribe(EventEnd, func(any) { r.End() })
	s.Resume()
}

// Sink accepts values and republishes them as its own data events. A sink is
// open from birth; accepting values after End is legal and has no special
// effect (no terminal closed state is enforced).
type Sink struct {
	events *emitter.Emitter
}

var _ Receiver = (*Sink)(nil)
var _ Emits = (*Sink)(nil)

// NewSink constructs an open sink.
func NewSink() *Sink {
	return &Sink{events: emitter.New()}
}

// Events returns the sink's event channel.
func (s *Sink) Events() *emitter.Emitter { return s.events }

// Accept republishes the value as the sink's own data event.
func (s *Sink) Accept(value any) { s.events.Publish(EventData, value) }

// Fail republishes the error on the sink's error event.
func (s *Sink) Fail(err error) { s.events.Publish(emitter.EventError, err) }

// End republishes the end-of-stream signal.
func (s *Sink) End() { s.events.Publish(EventEnd, nil) }
