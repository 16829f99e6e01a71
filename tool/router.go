package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentflow/core"
	"github.com/hupe1980/agentflow/logging"
)

// RouterOptions configures the dispatch behavior of a Router.
type RouterOptions struct {
	// MaxParallel caps concurrent handler executions per batch.
	// 0 or <1 means no explicit limit (batch size).
	MaxParallel int
	// Logger receives per-call diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Router is the name-keyed table of tool handlers. Register/Unregister are
// expected between, never concurrently with, a dispatch batch; Dispatch runs
// a whole batch concurrently and always yields one result per call, in input
// order, regardless of completion order.
type Router struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	maxParallel int
	logger      logging.Logger
}

// NewRouter constructs an empty Router.
func NewRouter(optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		tools:       make(map[string]Tool),
		maxParallel: opts.MaxParallel,
		logger:      opts.Logger,
	}
}

// Register adds a tool to the routing table, replacing any previous handler
// of the same name.
func (r *Router) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// RegisterFunc is shorthand for registering a FunctionTool.
func (r *Router) RegisterFunc(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) {
	r.Register(NewFunctionTool(name, description, parameters, fn))
}

// Unregister removes a tool by name. Returns true if it was registered.
func (r *Router) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		delete(r.tools, name)
		return true
	}
	return false
}

// Lookup retrieves a registered tool by name.
func (r *Router) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions exports the externally-facing definitions of all registered
// tools for the provider request.
func (r *Router) Definitions() []core.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]core.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition(t))
	}
	return defs
}

// Dispatch executes every call of the batch concurrently and returns one
// result per call in the same order as the input, a hard guarantee
// independent of each handler's completion latency. Individual failures are
// captured into is_error results; the batch itself always succeeds.
func (r *Router) Dispatch(ctx context.Context, calls []core.ToolCall) []core.ToolResult {
	n := len(calls)
	if n == 0 {
		return nil
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		return []core.ToolResult{r.executeOne(ctx, calls[0])}
	}

	maxPar := r.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.ToolResult, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = r.executeOne(ctx, call)
		}(i, calls[i])
	}
	wg.Wait()

	r.logger.Debug(
		"tool.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// executeOne resolves and runs a single call, capturing every failure mode
// (unknown tool, handler error, panic) into an error result.
func (r *Router) executeOne(ctx context.Context, call core.ToolCall) core.ToolResult {
	impl, ok := r.Lookup(call.Name)
	if !ok {
		r.logger.Warn("tool.call.unknown", "tool", call.Name, "tool_use_id", call.ID)
		return errorResult(call.ID, fmt.Sprintf("tool %q not found", call.Name))
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic in tool %s: %v", call.Name, rec)
				r.logger.Error("tool.call.panic", "tool", call.Name, "recover", rec)
			}
		}()
		result, err = impl.Call(ctx, call.Input)
	}()
	dur := time.Since(start)

	r.logger.Info(
		"tool.call.executed",
		"tool", call.Name,
		"tool_use_id", call.ID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return errorResult(call.ID, err.Error())
	}
	return core.ToolResult{ToolUseID: call.ID, Content: stringifyResult(result)}
}

func errorResult(toolUseID, msg string) core.ToolResult {
	return core.ToolResult{
		ToolUseID: toolUseID,
		Content:   "Error: " + msg,
		IsError:   true,
	}
}

// stringifyResult passes string results through unchanged and JSON-encodes
// everything else.
func stringifyResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
