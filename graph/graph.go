// Package graph compiles declarative node documents into live, wired
// pipelines. A document lists node specs; the compiler instantiates each
// node through a type registry, assigns stable ids, and subscribes
// consumers to the event channels of their producers.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/emitter"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/stream"
)

// Node is the minimal contract a compiled node satisfies: a stable
// identity and an event channel carrying its output.
type Node interface {
	ID() string
	Events() *emitter.Emitter
}

// Acceptor is implemented by nodes that consume wired input. The
// compiler delivers a shared accumulator map keyed by input name.
type Acceptor interface {
	Accept(value map[string]any)
}

// BuildContext carries ambient services into node constructors.
type BuildContext struct {
	Logger logging.Logger
}

// Constructor builds a node of one registered type.
type Constructor func(id string, cfg map[string]any, bctx BuildContext) (Node, error)

// Registry maps node type names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for a node type.
func (r *Registry) Register(typeName string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[typeName] = c
}

// Lookup returns the constructor for a node type.
func (r *Registry) Lookup(typeName string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.constructors[typeName]

	return c, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		types = append(types, name)
	}

	sort.Strings(types)

	return types
}

// JoinPolicy controls when a multi-input node is invoked.
type JoinPolicy int

const (
	// JoinAny delivers the accumulator on every upstream emission, even
	// while some declared inputs are still unset.
	JoinAny JoinPolicy = iota
	// JoinAll holds delivery until every declared input has arrived at
	// least once.
	JoinAll
)

// Options configure graph compilation.
type Options struct {
	Registry   *Registry
	JoinPolicy JoinPolicy
	Logger     logging.Logger
}

// Graph holds the instantiated nodes of a compiled document.
type Graph struct {
	nodes  map[string]Node
	order  []string
	logger logging.Logger
}

// Compile instantiates and wires the nodes described by specs. Nodes
// without an explicit id receive one of the form "type-N", numbered per
// type in document order starting at 1.
func Compile(specs []NodeSpec, optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{
		Registry:   NewRegistry(),
		JoinPolicy: JoinAny,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	g := &Graph{
		nodes:  make(map[string]Node, len(specs)),
		logger: opts.Logger,
	}

	counters := make(map[string]int)

	for _, spec := range specs {
		ctor, ok := opts.Registry.Lookup(spec.Type)
		if !ok {
			return nil, core.NewConfigError("unknown node type %q", spec.Type)
		}

		id := spec.ID
		if id == "" {
			counters[spec.Type]++
			id = fmt.Sprintf("%s-%d", spec.Type, counters[spec.Type])
		}

		if _, exists := g.nodes[id]; exists {
			return nil, core.NewConfigError("duplicate node id %q", id)
		}

		n, err := ctor(id, spec.Set, BuildContext{Logger: opts.Logger})
		if err != nil {
			return nil, fmt.Errorf("graph: build node %q: %w", id, err)
		}

		g.nodes[id] = n
		g.order = append(g.order, id)

		opts.Logger.Debug("node instantiated", "id", id, "type", spec.Type)
	}

	for i, spec := range specs {
		if len(spec.In) == 0 {
			continue
		}

		id := g.order[i]

		consumer, ok := g.nodes[id].(Acceptor)
		if !ok {
			return nil, core.NewConfigError("node %q (type %q) declares inputs but does not accept values", id, spec.Type)
		}

		if err := g.wire(id, consumer, spec.In, opts.JoinPolicy); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// wire subscribes consumer to every producer named in inputs. All edges
// of one consumer write into a single shared accumulator, so later
// arrivals are observed alongside earlier ones.
func (g *Graph) wire(id string, consumer Acceptor, inputs map[string]EdgeList, policy JoinPolicy) error {
	var mu sync.Mutex

	accumulator := make(map[string]any)
	arrived := make(map[string]bool, len(inputs))

	for inputKey, edges := range inputs {
		for _, edge := range edges {
			producer, ok := g.nodes[edge.Node]
			if !ok {
				return core.NewConfigError("node %q: input %q references unknown node %q", id, inputKey, edge.Node)
			}

			key, out := inputKey, edge.Out

			producer.Events().Subscribe(stream.EventData, func(payload any) {
				mu.Lock()

				v, ok := pick(payload, out)
				if !ok {
					mu.Unlock()
					g.logger.Debug("output key missing, skipping delivery", "node", id, "input", key, "out", out)

					return
				}

				accumulator[key] = v
				arrived[key] = true

				ready := policy == JoinAny || len(arrived) == len(inputs)

				var snapshot map[string]any
				if ready {
					snapshot = make(map[string]any, len(accumulator))
					for k, av := range accumulator {
						snapshot[k] = av
					}
				}

				mu.Unlock()

				if ready {
					consumer.Accept(snapshot)
				}
			})
		}
	}

	return nil
}

// pick extracts the named output key from an emitted payload. An empty
// key selects the payload itself.
func pick(payload any, out string) (any, bool) {
	if out == "" {
		return payload, true
	}

	m, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}

	v, ok := m[out]

	return v, ok
}

// Node returns the compiled node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]

	return n, ok
}

// Nodes returns the node ids in document order.
func (g *Graph) Nodes() []string {
	ids := make([]string, len(g.order))
	copy(ids, g.order)

	return ids
}

// Start resumes every controllable node in document order. Config nodes
// emit their static values here, which makes Start the moment initial
// data flows through the wiring.
func (g *Graph) Start() {
	for _, id := range g.order {
		if c, ok := g.nodes[id].(stream.Controllable); ok {
			c.Resume()
		}
	}
}
