package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskbridge-io/taskbridge/internal/gateway"
	"github.com/taskbridge-io/taskbridge/internal/run"
	"github.com/taskbridge-io/taskbridge/internal/tool"
	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// fakeGateway returns a canned response or error and counts calls.
type fakeGateway struct {
	resp    *protocol.ChatResponse
	err     error
	calls   int
	lastReq protocol.ChatRequest
}

func (g *fakeGateway) Chat(_ context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

// memRecorder collects saved run records.
type memRecorder struct {
	records []run.Record
}

func (r *memRecorder) Save(rec run.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func toolCallResponse(name, args string) *protocol.ChatResponse {
	return &protocol.ChatResponse{
		ToolCalls: []protocol.ToolCall{
			{ID: "call_1", Name: name, Arguments: json.RawMessage(args)},
		},
	}
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("not a dispatch error: %v", err)
	}
	return derr.Kind
}

func TestDispatch_EmptyTaskSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	d := New(gw, tool.Default(), nil, nil)

	_, err := d.Dispatch(context.Background(), "   \t ")
	if kindOf(t, err) != KindBadRequest {
		t.Errorf("kind = %v, want bad request", kindOf(t, err))
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times for empty task", gw.calls)
	}
}

func TestDispatch_EmptyTaskIsRecorded(t *testing.T) {
	gw := &fakeGateway{}
	rec := &memRecorder{}
	d := New(gw, tool.Default(), rec, nil)

	_, err := d.Dispatch(context.Background(), "")
	if kindOf(t, err) != KindBadRequest {
		t.Fatalf("kind = %v, want bad request", kindOf(t, err))
	}
	if len(rec.records) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(rec.records))
	}
	got := rec.records[0]
	if got.Status != run.StatusError {
		t.Errorf("status = %q, want %q", got.Status, run.StatusError)
	}
	if got.Detail != "task cannot be empty" {
		t.Errorf("detail = %q", got.Detail)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times for empty task", gw.calls)
	}
}

func TestDispatch_NoToolCalls(t *testing.T) {
	gw := &fakeGateway{resp: &protocol.ChatResponse{Content: "just chatting"}}
	rec := &memRecorder{}
	d := New(gw, tool.Default(), rec, nil)

	out, err := d.Dispatch(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result != nil {
		t.Error("unexpected tool result")
	}
	if out.Message != "No tool calls found." {
		t.Errorf("message = %q", out.Message)
	}
	if len(rec.records) != 1 || rec.records[0].Status != run.StatusNoToolCall {
		t.Errorf("records = %+v", rec.records)
	}
}

func TestDispatch_AttachesCatalog(t *testing.T) {
	gw := &fakeGateway{resp: &protocol.ChatResponse{}}
	reg := tool.Default()
	d := New(gw, reg, nil, nil)

	if _, err := d.Dispatch(context.Background(), "do something"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.lastReq.Tools) != reg.Len() {
		t.Errorf("request carried %d tools, want %d", len(gw.lastReq.Tools), reg.Len())
	}
	if len(gw.lastReq.Messages) != 2 || gw.lastReq.Messages[1].Content != "do something" {
		t.Errorf("messages = %+v", gw.lastReq.Messages)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	gw := &fakeGateway{resp: toolCallResponse("launch_rocket", `{}`)}
	d := New(gw, tool.Default(), nil, nil)

	_, err := d.Dispatch(context.Background(), "launch it")
	if kindOf(t, err) != KindBadRequest {
		t.Fatalf("kind = %v, want bad request", kindOf(t, err))
	}
	var derr *Error
	errors.As(err, &derr)
	if !strings.Contains(derr.Detail, "launch_rocket") {
		t.Errorf("detail %q should name the missing tool", derr.Detail)
	}
}

func TestDispatch_MalformedArguments(t *testing.T) {
	gw := &fakeGateway{resp: toolCallResponse("bake_cake", `{broken`)}
	d := New(gw, tool.Default(), nil, nil)

	_, err := d.Dispatch(context.Background(), "bake a cake")
	if kindOf(t, err) != KindBadRequest {
		t.Errorf("kind = %v, want bad request", kindOf(t, err))
	}
}

func TestDispatch_ToolSuccess(t *testing.T) {
	gw := &fakeGateway{resp: toolCallResponse("bake_cake", `{"number_people":2,"flavour":"lemon"}`)}
	rec := &memRecorder{}
	d := New(gw, tool.Default(), rec, nil)

	out, err := d.Dispatch(context.Background(), "bake a lemon cake for two")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result == nil || out.Result.Status != protocol.StatusSuccess {
		t.Fatalf("result = %+v", out.Result)
	}
	if out.Tool != "bake_cake" {
		t.Errorf("tool = %q", out.Tool)
	}

	if len(rec.records) != 1 {
		t.Fatalf("records = %+v", rec.records)
	}
	saved := rec.records[0]
	if saved.Status != run.StatusSuccess || saved.Tool != "bake_cake" || saved.ID == "" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestDispatch_ToolNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	out := filepath.Join(t.TempDir(), "out.json")
	args := fmt.Sprintf(`{"input_location":%q,"output_location":%q}`, missing, out)
	gw := &fakeGateway{resp: toolCallResponse("sort_contacts", args)}
	rec := &memRecorder{}
	d := New(gw, tool.Default(), rec, nil)

	_, err := d.Dispatch(context.Background(), "sort my contacts")
	if kindOf(t, err) != KindNotFound {
		t.Errorf("kind = %v, want not found", kindOf(t, err))
	}
	if len(rec.records) != 1 || rec.records[0].Status != run.StatusError {
		t.Errorf("records = %+v", rec.records)
	}
}

func TestDispatch_GatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: &gateway.APIError{StatusCode: 502, Body: "bad gateway"}}
	d := New(gw, tool.Default(), nil, nil)

	_, err := d.Dispatch(context.Background(), "anything")
	if kindOf(t, err) != KindGateway {
		t.Errorf("kind = %v, want gateway", kindOf(t, err))
	}
}

func TestDispatch_MissingCredential(t *testing.T) {
	gw := &fakeGateway{err: gateway.ErrNoCredential}
	d := New(gw, tool.Default(), nil, nil)

	_, err := d.Dispatch(context.Background(), "anything")
	if kindOf(t, err) != KindConfiguration {
		t.Errorf("kind = %v, want configuration", kindOf(t, err))
	}
}

func TestDispatch_OnlyFirstToolCallRuns(t *testing.T) {
	resp := &protocol.ChatResponse{
		ToolCalls: []protocol.ToolCall{
			{ID: "call_1", Name: "bake_cake", Arguments: json.RawMessage(`{"number_people":1,"flavour":"plain"}`)},
			{ID: "call_2", Name: "launch_rocket", Arguments: json.RawMessage(`{}`)},
		},
	}
	d := New(&fakeGateway{resp: resp}, tool.Default(), nil, nil)

	out, err := d.Dispatch(context.Background(), "bake then launch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tool != "bake_cake" {
		t.Errorf("tool = %q, want first call only", out.Tool)
	}
}
