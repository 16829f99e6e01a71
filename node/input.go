package node

// Input feeds caller-provided values into a running graph. Downstream
// wiring sees each injected map as one data emission.
type Input struct {
	Base
}

// NewInput constructs an input node.
func NewInput(id string, optFns ...func(o *Options)) *Input {
	opts := applyOptions(optFns)

	return &Input{Base: NewBase(id, opts.Logger)}
}

// Inject emits value on the node's output.
func (n *Input) Inject(value map[string]any) {
	n.logger.Debug("input injected", "node", n.id, "keys", len(value))
	n.emit(value)
}

// Accept makes an input node usable as an edge target, forwarding the
// accumulated value unchanged.
func (n *Input) Accept(value map[string]any) { n.Inject(value) }
