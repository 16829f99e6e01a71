package node

import "sync"

// OutputOptions configure an output node.
type OutputOptions struct {
	Options

	// OnValue is invoked synchronously for every accepted value.
	OnValue func(value map[string]any)
}

// Output is a terminal sink. It records the most recent value, logs it,
// invokes the optional callback and re-emits for any observers attached
// to the node itself.
type Output struct {
	Base

	mu      sync.Mutex
	last    map[string]any
	onValue func(value map[string]any)
}

// NewOutput constructs an output node.
func NewOutput(id string, optFns ...func(o *OutputOptions)) *Output {
	opts := OutputOptions{Options: applyOptions(nil)}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Output{Base: NewBase(id, opts.Logger), onValue: opts.OnValue}
}

// Accept records and republishes value.
func (n *Output) Accept(value map[string]any) {
	n.mu.Lock()
	n.last = value
	n.mu.Unlock()

	n.logger.Info("output received", "node", n.id, "value", value)

	if n.onValue != nil {
		n.onValue(value)
	}

	n.emit(value)
}

// Last returns the most recently accepted value, or nil before the first
// delivery.
func (n *Output) Last() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.last
}
