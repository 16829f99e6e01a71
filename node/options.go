package node

import "github.com/hupe1980/agentflow/logging"

// Options configure the constructors shared across builtin node types.
type Options struct {
	Logger logging.Logger
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}
