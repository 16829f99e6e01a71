// Package agent implements the bounded multi-turn tool-calling loop on top of
// the conversation memory, a provider adapter and the tool router: send the
// conversation to the model, detect the tool-use stop condition, dispatch the
// requested tools concurrently, fold the results back into the conversation
// and repeat until the model stops requesting tools or the iteration cap is
// reached.
package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/emitter"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/memory"
	"github.com/hupe1980/agentflow/provider"
	"github.com/hupe1980/agentflow/tool"
)

// EventPhase is the event name on which the loop publishes its observability
// events. Intended for progress/telemetry consumers, never for control flow.
const EventPhase = "phase"

// Phase names a significant loop transition.
type Phase string

const (
	// PhaseLoopStart marks the reception of a user turn.
	PhaseLoopStart Phase = "loop_start"
	// PhaseModelResponse marks a completed model round trip.
	PhaseModelResponse Phase = "model_response"
	// PhaseToolsComplete marks a completed tool-dispatch batch.
	PhaseToolsComplete Phase = "tools_complete"
)

// PhaseEvent is the payload published on EventPhase at each transition.
type PhaseEvent struct {
	RunID     string `json:"run_id"`
	Iteration int    `json:"iteration"`
	Phase     Phase  `json:"phase"`
	Payload   any    `json:"payload,omitempty"`
}

// Result is the terminal outcome of one Run.
type Result struct {
	Response   string `json:"response"`
	Iterations int    `json:"iterations"`
	StopReason string `json:"stop_reason"`
}

// Options configures a Loop instance.
type Options struct {
	// MaxIterations caps the number of model calls per Run. Exceeding it is
	// fatal for the run.
	MaxIterations int
	// SystemPrompt pins a system message when no Memory is supplied.
	SystemPrompt string
	// MaxHistory bounds conversation retention when no Memory is supplied.
	MaxHistory int
	// Memory overrides the internally constructed conversation store.
	Memory *memory.Conversation
	// Router overrides the internally constructed tool router.
	Router *tool.Router
	// Events receives the observability side channel. Defaults to a fresh
	// emitter reachable via Events().
	Events *emitter.Emitter
	// Logger receives loop diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Loop drives the tool-calling cycle against one provider. The conversation
// store is mutated exclusively by the loop and the store's own API.
type Loop struct {
	provider      provider.Provider
	memory        *memory.Conversation
	router        *tool.Router
	maxIterations int
	events        *emitter.Emitter
	logger        logging.Logger
}

// New creates a Loop with sensible defaults: 10 iterations, an empty tool
// router and a fresh conversation store.
func New(p provider.Provider, optFns ...func(o *Options)) *Loop {
	opts := Options{
		MaxIterations: 10,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	mem := opts.Memory
	if mem == nil {
		mem = memory.New(func(o *memory.Options) {
			o.SystemPrompt = opts.SystemPrompt
			o.MaxMessages = opts.MaxHistory
			o.Logger = opts.Logger
		})
	}
	router := opts.Router
	if router == nil {
		router = tool.NewRouter(func(o *tool.RouterOptions) { o.Logger = opts.Logger })
	}
	events := opts.Events
	if events == nil {
		events = emitter.New()
	}

	return &Loop{
		provider:      p,
		memory:        mem,
		router:        router,
		maxIterations: opts.MaxIterations,
		events:        events,
		logger:        opts.Logger,
	}
}

// Memory returns the conversation store backing this loop.
func (l *Loop) Memory() *memory.Conversation { return l.memory }

// Router returns the tool router backing this loop.
func (l *Loop) Router() *tool.Router { return l.router }

// Events returns the observability side channel.
func (l *Loop) Events() *emitter.Emitter { return l.events }

// RegisterTools adds tools to the loop's router.
func (l *Loop) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		l.router.Register(t)
	}
}

// Run executes the bounded tool-calling cycle for one user turn. Input is
// either a raw user-message string or a full core.Message. Tool handler
// failures are absorbed into the conversation as is_error results; provider
// failures and the iteration cap are fatal and non-resumable, with the
// conversation accumulated so far still queryable through Memory().
func (l *Loop) Run(ctx context.Context, input any) (*Result, error) {
	msg, err := coerceInput(input)
	if err != nil {
		return nil, err
	}
	l.memory.Append(msg)

	runID := core.NewID()
	l.publish(runID, 0, PhaseLoopStart, msg.Text())
	l.logger.Info("agent.run.start", "run_id", runID, "max_iterations", l.maxIterations)

	start := time.Now()
	iteration := 0
	for {
		iteration++
		if iteration > l.maxIterations {
			err := &core.IterationLimitError{Limit: l.maxIterations}
			l.logger.Error("agent.run.iteration_limit", "run_id", runID, "limit", l.maxIterations)
			return nil, err
		}

		resp, err := l.provider.Complete(ctx, provider.Request{
			Messages: l.memory.Messages(),
			Tools:    l.router.Definitions(),
		})
		if err != nil {
			l.logger.Error("agent.run.model_error", "run_id", runID, "iteration", iteration, "error", err.Error())
			return nil, err
		}

		l.memory.Append(core.NewAssistantMessage(resp.Content...))
		l.publish(runID, iteration, PhaseModelResponse, resp)

		if resp.StopReason != provider.StopReasonToolUse || len(resp.ToolCalls) == 0 {
			result := &Result{
				Response:   core.JoinText(resp.Content),
				Iterations: iteration,
				StopReason: resp.StopReason,
			}
			l.logger.Info(
				"agent.run.complete",
				"run_id", runID,
				"iterations", iteration,
				"stop_reason", resp.StopReason,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return result, nil
		}

		results := l.router.Dispatch(ctx, resp.ToolCalls)
		l.memory.Append(core.NewToolResultMessage(results))
		l.publish(runID, iteration, PhaseToolsComplete, results)
	}
}

func (l *Loop) publish(runID string, iteration int, phase Phase, payload any) {
	l.events.Publish(EventPhase, PhaseEvent{
		RunID:     runID,
		Iteration: iteration,
		Phase:     phase,
		Payload:   payload,
	})
}

func coerceInput(input any) (core.Message, error) {
	switch v := input.(type) {
	case string:
		return core.NewUserMessage(v), nil
	case core.Message:
		return v, nil
	case *core.Message:
		return *v, nil
	default:
		return core.Message{}, core.NewConfigError("unsupported input type %T", input)
	}
}
