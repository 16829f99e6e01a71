package node

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/agentflow/agent"
	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/internal/util"
	"github.com/hupe1980/agentflow/provider"
	anthropicprovider "github.com/hupe1980/agentflow/provider/anthropic"
	openaiprovider "github.com/hupe1980/agentflow/provider/openai"
	"github.com/hupe1980/agentflow/tool"
)

// AgentConfig is the static configuration of an agent node.
type AgentConfig struct {
	// Provider selects the model backend: "anthropic" or "openai". Ignored
	// when a provider instance is supplied via options.
	Provider string `mapstructure:"provider"`
	// Model overrides the backend's default model.
	Model string `mapstructure:"model"`
	// SystemPrompt pins a system message for the conversation.
	SystemPrompt string `mapstructure:"systemPrompt"`
	// MaxIterations caps model calls per run. Zero keeps the loop default.
	MaxIterations int `mapstructure:"maxIterations"`
	// MaxHistory bounds conversation retention. Zero means unbounded.
	MaxHistory int `mapstructure:"maxHistory"`
	// Prompt is an optional [[key]] template rendered against the accepted
	// input. When empty, the input's "prompt" key is sent verbatim.
	Prompt string `mapstructure:"prompt"`
}

// AgentOptions configure an agent node beyond its document config.
type AgentOptions struct {
	Options

	// Provider overrides backend selection, bypassing the config's
	// provider/model fields.
	Provider provider.Provider
	// Router supplies a pre-populated tool router.
	Router *tool.Router
}

// Agent embeds a tool-calling loop as a graph node. Each accepted input
// becomes one run; the terminal result is emitted as
// {response, iterations, stopReason}.
type Agent struct {
	Base

	loop   *agent.Loop
	prompt string
}

// NewAgent constructs an agent node from raw document configuration.
func NewAgent(id string, cfg map[string]any, optFns ...func(o *AgentOptions)) (*Agent, error) {
	opts := AgentOptions{Options: applyOptions(nil)}
	for _, fn := range optFns {
		fn(&opts)
	}

	var decoded AgentConfig
	if err := mapstructure.Decode(cfg, &decoded); err != nil {
		return nil, core.NewConfigError("agent %q: invalid configuration: %s", id, err)
	}

	p := opts.Provider
	if p == nil {
		var err error
		if p, err = resolveProvider(decoded); err != nil {
			return nil, err
		}
	}

	loop := agent.New(p, func(o *agent.Options) {
		if decoded.MaxIterations > 0 {
			o.MaxIterations = decoded.MaxIterations
		}

		o.SystemPrompt = decoded.SystemPrompt
		o.MaxHistory = decoded.MaxHistory
		o.Router = opts.Router
		o.Logger = opts.Logger
	})

	return &Agent{
		Base:   NewBase(id, opts.Logger),
		loop:   loop,
		prompt: decoded.Prompt,
	}, nil
}

// Loop exposes the embedded loop for tool registration and observability.
func (n *Agent) Loop() *agent.Loop { return n.loop }

// Accept resolves the prompt from value and runs the loop to completion.
func (n *Agent) Accept(value map[string]any) {
	prompt := n.prompt
	if prompt != "" {
		prompt = util.Interpolate(prompt, value)
	} else if s, ok := value["prompt"].(string); ok {
		prompt = s
	}

	if prompt == "" {
		n.fail(core.NewConfigError("agent %q: no prompt in input", n.id))

		return
	}

	result, err := n.loop.Run(context.Background(), prompt)
	if err != nil {
		n.fail(err)

		return
	}

	n.emit(map[string]any{
		"response":   result.Response,
		"iterations": result.Iterations,
		"stopReason": result.StopReason,
	})
}

func resolveProvider(cfg AgentConfig) (provider.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropicprovider.New(func(o *anthropicprovider.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		}), nil
	case "openai":
		return openaiprovider.New(func(o *openaiprovider.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "":
		return nil, core.NewConfigError("agent: no provider configured")
	default:
		return nil, core.NewConfigError("agent: unknown provider %q", cfg.Provider)
	}
}
