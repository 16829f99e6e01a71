// Package agentflow provides a high-level façade over the graph compiler
// and the tool-calling agent loop. Most applications interact with this
// package by:
//  1. Loading or declaring a graph document and compiling it via Compile()
//  2. Injecting values into input nodes and reading output nodes, or
//  3. Constructing a standalone agent via NewAgent() and calling Run()
//
// The façade wires the builtin node types (input, config, output,
// httprequest, agent) into a default registry. All defaults are safe for
// local development; production deployments typically supply a structured
// logger and provider credentials via the environment.
package agentflow

import (
	"context"

	"github.com/hupe1980/agentflow/agent"
	"github.com/hupe1980/agentflow/graph"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/node"
	"github.com/hupe1980/agentflow/provider"
	"github.com/hupe1980/agentflow/tool"
)

// Options configures graph compilation through the façade.
type Options struct {
	// Registry overrides the default builtin node registry.
	Registry *graph.Registry
	// JoinPolicy controls multi-input delivery. Defaults to JoinAny.
	JoinPolicy graph.JoinPolicy
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// DefaultRegistry returns a registry populated with the builtin node
// types.
func DefaultRegistry() *graph.Registry {
	r := graph.NewRegistry()

	r.Register("input", func(id string, _ map[string]any, bctx graph.BuildContext) (graph.Node, error) {
		return node.NewInput(id, func(o *node.Options) { o.Logger = bctx.Logger }), nil
	})
	r.Register("config", func(id string, cfg map[string]any, bctx graph.BuildContext) (graph.Node, error) {
		return node.NewConfig(id, cfg, func(o *node.Options) { o.Logger = bctx.Logger }), nil
	})
	r.Register("output", func(id string, _ map[string]any, bctx graph.BuildContext) (graph.Node, error) {
		return node.NewOutput(id, func(o *node.OutputOptions) { o.Logger = bctx.Logger }), nil
	})
	r.Register("httprequest", func(id string, cfg map[string]any, bctx graph.BuildContext) (graph.Node, error) {
		return node.NewHTTPRequest(id, cfg, func(o *node.HTTPRequestOptions) { o.Logger = bctx.Logger })
	})
	r.Register("agent", func(id string, cfg map[string]any, bctx graph.BuildContext) (graph.Node, error) {
		return node.NewAgent(id, cfg, func(o *node.AgentOptions) { o.Logger = bctx.Logger })
	})

	return r
}

// Compile builds a wired graph from specs using the builtin node types.
func Compile(specs []graph.NodeSpec, optFns ...func(o *Options)) (*graph.Graph, error) {
	opts := Options{
		Registry: DefaultRegistry(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return graph.Compile(specs, func(o *graph.Options) {
		o.Registry = opts.Registry
		o.JoinPolicy = opts.JoinPolicy
		o.Logger = opts.Logger
	})
}

// CompileFile loads the graph document at path and compiles it.
func CompileFile(path string, optFns ...func(o *Options)) (*graph.Graph, error) {
	doc, err := graph.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return Compile(doc.Nodes, optFns...)
}

// AgentOptions configure a standalone agent built through the façade.
type AgentOptions struct {
	// MaxIterations caps model calls per run. Defaults to 10.
	MaxIterations int
	// SystemPrompt pins a system message for the conversation.
	SystemPrompt string
	// MaxHistory bounds conversation retention. Zero means unbounded.
	MaxHistory int
	// Tools are registered on the agent's router.
	Tools []tool.Tool
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Agent is a thin wrapper around agent.Loop for single-call use.
type Agent struct {
	loop *agent.Loop
}

// NewAgent constructs a ready-to-run agent on the given provider.
func NewAgent(p provider.Provider, optFns ...func(o *AgentOptions)) *Agent {
	opts := AgentOptions{
		MaxIterations: 10,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	loop := agent.New(p, func(o *agent.Options) {
		o.MaxIterations = opts.MaxIterations
		o.SystemPrompt = opts.SystemPrompt
		o.MaxHistory = opts.MaxHistory
		o.Logger = opts.Logger
	})

	loop.RegisterTools(opts.Tools...)

	return &Agent{loop: loop}
}

// Loop exposes the underlying loop for memory, router and event access.
func (a *Agent) Loop() *agent.Loop { return a.loop }

// Run executes one conversational turn and returns the terminal text.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	result, err := a.loop.Run(ctx, input)
	if err != nil {
		return "", err
	}

	return result.Response, nil
}
