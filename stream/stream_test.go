package stream

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentflow/emitter"
	"github.com/stretchr/testify/assert"
)

func TestSourceLifecycle(t *testing.T) {
	src := NewSource()
	assert.Equal(t, StatusPaused, src.Status())

	src.Resume()
	assert.Equal(t, StatusOpen, src.Status())

	src.Pause()
	assert.Equal(t, StatusPaused, src.Status())
}

func TestPauseDoesNotGateDelivery(t *testing.T) {
	src := NewSource()
	var got []any
	src.Events().Subscribe(EventData, func(v any) { got = append(got, v) })

	// Pausing is advisory; emitted values are still delivered.
	src.Pause()
	src.Emit("while-paused")

	assert.Equal(t, []any{"while-paused"}, got)
}

func TestConnectWiresSignalsAndResumes(t *testing.T) {
	src := NewSource()
	sink := NewSink()

	var values []any
	var ended bool
	var gotErr error
	sink.Events().Subscribe(EventData, func(v any) { values = append(values, v) })
	sink.Events().Subscribe(EventEnd, func(any) { ended = true })
	sink.Events().Subscribe(emitter.EventError, func(v any) { gotErr = v.(error) })

	src.Connect(sink)
	assert.Equal(t, StatusOpen, src.Status())

	src.Emit(1)
	src.Emit(2)
	src.Fail(errors.New("upstream broke"))
	src.End()

	assert.Equal(t, []any{1, 2}, values)
	assert.True(t, ended)
	assert.EqualError(t, gotErr, "upstream broke")
}

func TestSinkAcceptAfterEnd(t *testing.T) {
	sink := NewSink()
	var values []any
	sink.Events().Subscribe(EventData, func(v any) { values = append(values, v) })

	sink.Accept("before")
	sink.End()
	sink.Accept("after")

	// No terminal closed state: accepting after End is legal.
	assert.Equal(t, []any{"before", "after"}, values)
}
