package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskbridge-io/taskbridge/internal/gateway"
	"github.com/taskbridge-io/taskbridge/internal/run"
	"github.com/taskbridge-io/taskbridge/internal/tool"
	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

const systemPrompt = "You are a helpful assistant."

// noToolCallsMessage is the neutral outcome when the model answers without
// requesting a tool.
const noToolCallsMessage = "No tool calls found."

// Gateway is the slice of the gateway client the dispatcher needs.
type Gateway interface {
	Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error)
}

// Recorder persists run records. A nil Recorder disables history.
type Recorder interface {
	Save(rec run.Record) error
}

// Outcome is the successful result of one dispatched task: either a tool's
// result or the neutral no-tool-calls message.
type Outcome struct {
	Result  *protocol.ToolResult
	Message string
	Tool    string
}

// Dispatcher translates one inbound task into one gateway call and,
// conditionally, one tool invocation. It holds no per-request state.
type Dispatcher struct {
	gateway Gateway
	tools   *tool.Registry
	runs    Recorder
	logger  *slog.Logger
}

// New creates a dispatcher. runs may be nil to disable run history.
func New(gw Gateway, tools *tool.Registry, runs Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gateway: gw,
		tools:   tools,
		runs:    runs,
		logger:  logger,
	}
}

// Dispatch runs one task end to end. A non-nil error is always a *Error.
// Every outcome is recorded, including validation failures.
func (d *Dispatcher) Dispatch(ctx context.Context, task string) (*Outcome, error) {
	task = strings.TrimSpace(task)
	started := time.Now()

	var out *Outcome
	var derr *Error
	if task == "" {
		// Rejected before any gateway call is made.
		derr = errorf(KindBadRequest, nil, "task cannot be empty")
	} else {
		out, derr = d.dispatch(ctx, task)
	}
	d.record(task, out, derr, started)

	if derr != nil {
		d.logger.Warn("dispatch failed", "kind", derr.Kind.String(), "detail", derr.Detail, "error", derr.Err)
		return nil, derr
	}
	return out, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, task string) (*Outcome, *Error) {
	req := protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: task},
		},
		Tools: d.tools.Definitions(),
	}

	resp, err := d.gateway.Chat(ctx, req)
	if err != nil {
		if errors.Is(err, gateway.ErrNoCredential) {
			return nil, errorf(KindConfiguration, err, "gateway credential is not configured")
		}
		return nil, errorf(KindGateway, err, "gateway call failed: %v", err)
	}

	if !resp.HasToolCalls() {
		d.logger.Info("no tool calls in response", "content_len", len(resp.Content))
		return &Outcome{Message: noToolCallsMessage}, nil
	}

	// Only the first tool call is executed; one task maps to one invocation.
	tc := resp.ToolCalls[0]
	d.logger.Info("tool call", "tool", tc.Name, "call_id", tc.ID)

	t, ok := d.tools.Get(tc.Name)
	if !ok {
		return nil, errorf(KindBadRequest, nil, "unknown tool: %s", tc.Name)
	}

	call, err := t.Decode(tc.Arguments)
	if err != nil {
		return nil, errorf(KindBadRequest, err, "invalid arguments for %s: %v", tc.Name, err)
	}

	result, err := call.Invoke(ctx)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			return nil, errorf(KindNotFound, err, "%v", err)
		}
		return nil, errorf(KindInternal, err, "tool %s failed: %v", tc.Name, err)
	}

	d.logger.Info("tool result", "tool", tc.Name, "status", result.Status, "output", result.OutputLocation)
	return &Outcome{Result: &result, Tool: tc.Name}, nil
}

// record writes one run record per dispatch, success or failure.
func (d *Dispatcher) record(task string, out *Outcome, derr *Error, started time.Time) {
	if d.runs == nil {
		return
	}

	rec := run.Record{
		ID:         uuid.NewString(),
		Task:       task,
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
	}
	switch {
	case derr != nil:
		rec.Status = run.StatusError
		rec.Detail = derr.Detail
	case out.Result != nil:
		rec.Status = run.StatusSuccess
		rec.Tool = out.Tool
		rec.Detail = out.Result.Message
		rec.OutputLocation = out.Result.OutputLocation
	default:
		rec.Status = run.StatusNoToolCall
		rec.Detail = out.Message
	}

	if err := d.runs.Save(rec); err != nil {
		d.logger.Error("failed to record run", "run", rec.ID, "error", err)
	}
}
