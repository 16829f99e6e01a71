package node

import "sync"

// Config emits a static value map once, when the graph starts. Wiring a
// config node into another node's inputs is how documents pass constants
// into the dataflow.
type Config struct {
	Base

	values map[string]any
	once   sync.Once
}

// NewConfig constructs a config node holding values.
func NewConfig(id string, values map[string]any, optFns ...func(o *Options)) *Config {
	opts := applyOptions(optFns)

	if values == nil {
		values = map[string]any{}
	}

	return &Config{Base: NewBase(id, opts.Logger), values: values}
}

// Resume opens the output stream and emits the configured values. The
// emission happens at most once across repeated Resume calls.
func (n *Config) Resume() {
	n.Base.Resume()
	n.once.Do(func() {
		n.logger.Debug("config emitted", "node", n.id, "keys", len(n.values))
		n.emit(n.values)
	})
}

// Values returns the configured value map.
func (n *Config) Values() map[string]any { return n.values }
