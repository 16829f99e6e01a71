// Package emitter implements the minimal named-event publish/subscribe
// primitive underpinning streams, graph edges, conversation memory and the
// agent loop's observability side channel. Delivery is synchronous and in
// registration order; a misbehaving handler never prevents its siblings from
// running.
package emitter

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentflow/logging"
)

// EventError is the reserved event name on which recovered handler panics are
// re-published. A panic raised by an EventError handler itself is only logged,
// never re-raised, blocking infinite recursion.
const EventError = "error"

// Handler consumes a published payload. Handlers run synchronously on the
// publishing goroutine.
type Handler func(payload any)

// Subscription is the handle returned by Subscribe, used to detach the
// handler again via Unsubscribe.
type Subscription struct {
	event   string
	handler Handler
}

// Options configures an Emitter instance.
type Options struct {
	// Logger receives diagnostics for panics recovered inside error handlers.
	Logger logging.Logger
}

// Emitter is a named-event channel with one handler registry per instance.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]*Subscription
	logger   logging.Logger
}

// New constructs an empty Emitter.
func New(optFns ...func(o *Options)) *Emitter {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Emitter{
		handlers: make(map[string][]*Subscription),
		logger:   opts.Logger,
	}
}

// Subscribe registers a handler for the named event and returns a handle that
// can later be passed to Unsubscribe. Handlers for the same event run in
// registration order.
func (e *Emitter) Subscribe(event string, h Handler) *Subscription {
	sub := &Subscription{event: event, handler: h}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], sub)
	return sub
}

// Unsubscribe detaches a previously registered handler. Unknown or already
// removed subscriptions are ignored.
func (e *Emitter) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.handlers[sub.event]
	for i, s := range subs {
		if s == sub {
			e.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of handlers registered for an event.
func (e *Emitter) SubscriberCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}

// Publish invokes every handler registered for the event, synchronously and
// in registration order. A handler panic is recovered and re-published on
// EventError so remaining handlers still run.
func (e *Emitter) Publish(event string, payload any) {
	e.mu.Lock()
	subs := e.handlers[event]
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	e.mu.Unlock()

	for _, sub := range snapshot {
		e.invoke(event, sub.handler, payload)
	}
}

func (e *Emitter) invoke(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic on %q: %v", event, r)
			if event == EventError {
				// An error handler panicked: log only, never re-raise.
				e.logger.Error("emitter.error_handler.panic", "event", event, "recover", r)
				return
			}
			e.logger.Warn("emitter.handler.panic", "event", event, "recover", r)
			e.Publish(EventError, err)
		}
	}()
	h(payload)
}
