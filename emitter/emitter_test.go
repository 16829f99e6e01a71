package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRegistrationOrder(t *testing.T) {
	e := New()
	var got []string
	e.Subscribe("data", func(any) { got = append(got, "first") })
	e.Subscribe("data", func(any) { got = append(got, "second") })
	e.Subscribe("data", func(any) { got = append(got, "third") })

	e.Publish("data", nil)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPublishPayload(t *testing.T) {
	e := New()
	var got any
	e.Subscribe("data", func(v any) { got = v })
	e.Publish("data", map[string]any{"x": 1})
	assert.Equal(t, map[string]any{"x": 1}, got)
}

func TestHandlerPanicIsolation(t *testing.T) {
	e := New()
	var ran bool
	var errPayload any
	e.Subscribe(EventError, func(v any) { errPayload = v })
	e.Subscribe("data", func(any) { panic("boom") })
	e.Subscribe("data", func(any) { ran = true })

	e.Publish("data", nil)

	assert.True(t, ran, "sibling handler must still run")
	assert.Error(t, errPayload.(error))
	assert.Contains(t, errPayload.(error).Error(), "boom")
}

func TestErrorHandlerPanicIsOnlyLogged(t *testing.T) {
	e := New()
	e.Subscribe(EventError, func(any) { panic("recursive") })

	// Must not panic and must not recurse.
	assert.NotPanics(t, func() { e.Publish(EventError, assert.AnError) })
}

func TestUnsubscribe(t *testing.T) {
	e := New()
	var calls int
	sub := e.Subscribe("data", func(any) { calls++ })
	e.Publish("data", nil)
	e.Unsubscribe(sub)
	e.Publish("data", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.SubscriberCount("data"))

	// Double unsubscribe and nil are no-ops.
	e.Unsubscribe(sub)
	e.Unsubscribe(nil)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	e := New()
	assert.NotPanics(t, func() { e.Publish("data", 42) })
}
