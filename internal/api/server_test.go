package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskbridge-io/taskbridge/internal/dispatch"
	"github.com/taskbridge-io/taskbridge/internal/logbuf"
	"github.com/taskbridge-io/taskbridge/internal/run"
	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// mockRunner implements TaskRunner for testing.
type mockRunner struct {
	out   *dispatch.Outcome
	err   error
	tasks []string
}

func (m *mockRunner) Dispatch(_ context.Context, task string) (*dispatch.Outcome, error) {
	m.tasks = append(m.tasks, task)
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

// mockRuns implements RunQuerier for testing.
type mockRuns struct {
	records []run.Record
}

func (m *mockRuns) Get(id string) (run.Record, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return run.Record{}, run.ErrNotFound
}

func (m *mockRuns) List(_ run.Filter) ([]run.Record, error) {
	return m.records, nil
}

func newTestServer(runner TaskRunner, runs RunQuerier, logs LogQuerier, key string) *Server {
	catalog := []protocol.ToolDefinition{
		protocol.NewToolDefinition("sort_contacts", "sorts", map[string]any{"type": "object"}),
	}
	return NewServer(runner, catalog, runs, logs, Config{Host: "127.0.0.1", Port: 0, Key: key}, nil)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	json.NewDecoder(w.Body).Decode(&decoded)
	return w, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "")
	w, body := doJSON(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRun_ToolResult(t *testing.T) {
	runner := &mockRunner{
		out: &dispatch.Outcome{
			Result: &protocol.ToolResult{
				Status:         protocol.StatusSuccess,
				Message:        "Contacts sorted and saved to /out.json.",
				OutputLocation: "/out.json",
			},
			Tool: "sort_contacts",
		},
	}
	srv := newTestServer(runner, nil, nil, "")
	w, body := doJSON(t, srv, "POST", "/run", `{"task": "sort my contacts"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "success" || body["output_location"] != "/out.json" {
		t.Errorf("body = %v", body)
	}
	if len(runner.tasks) != 1 || runner.tasks[0] != "sort my contacts" {
		t.Errorf("tasks = %v", runner.tasks)
	}
}

func TestRun_NoToolCalls(t *testing.T) {
	runner := &mockRunner{out: &dispatch.Outcome{Message: "No tool calls found."}}
	srv := newTestServer(runner, nil, nil, "")
	w, body := doJSON(t, srv, "POST", "/run", `{"task": "hi"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["message"] != "No tool calls found." {
		t.Errorf("body = %v", body)
	}
}

func TestRun_InvalidBody(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "")
	w, body := doJSON(t, srv, "POST", "/run", `{broken`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if body["detail"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestRun_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		kind dispatch.Kind
		want int
	}{
		{"bad request", dispatch.KindBadRequest, http.StatusBadRequest},
		{"not found", dispatch.KindNotFound, http.StatusNotFound},
		{"configuration", dispatch.KindConfiguration, http.StatusInternalServerError},
		{"gateway", dispatch.KindGateway, http.StatusInternalServerError},
		{"internal", dispatch.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{err: &dispatch.Error{Kind: tt.kind, Detail: "boom"}}
			srv := newTestServer(runner, nil, nil, "")
			w, body := doJSON(t, srv, "POST", "/run", `{"task": "x"}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if body["detail"] != "boom" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestTools(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "")
	req := httptest.NewRequest("GET", "/api/tools", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var defs []protocol.ToolDefinition
	json.NewDecoder(w.Body).Decode(&defs)
	if len(defs) != 1 || defs[0].Function.Name != "sort_contacts" {
		t.Errorf("defs = %+v", defs)
	}
}

func TestListRuns(t *testing.T) {
	runs := &mockRuns{records: []run.Record{
		{ID: "r1", Task: "sort", Status: run.StatusSuccess, StartedAt: time.Now()},
		{ID: "r2", Task: "count", Status: run.StatusError, StartedAt: time.Now()},
	}}
	srv := newTestServer(&mockRunner{}, runs, nil, "")
	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var records []run.Record
	json.NewDecoder(w.Body).Decode(&records)
	if len(records) != 2 {
		t.Errorf("got %d records", len(records))
	}
}

func TestListRuns_StoreDisabled(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "")
	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestGetRun(t *testing.T) {
	runs := &mockRuns{records: []run.Record{{ID: "r1", Task: "sort", Status: run.StatusSuccess}}}
	srv := newTestServer(&mockRunner{}, runs, nil, "")

	w, body := doJSON(t, srv, "GET", "/api/runs/r1", "")
	if w.Code != http.StatusOK || body["id"] != "r1" {
		t.Errorf("status = %d, body = %v", w.Code, body)
	}

	w, _ = doJSON(t, srv, "GET", "/api/runs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "secret")

	// /api routes require the key.
	req := httptest.NewRequest("GET", "/api/tools", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/tools", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	// /run stays open.
	runner := &mockRunner{out: &dispatch.Outcome{Message: "No tool calls found."}}
	srv2 := newTestServer(runner, nil, nil, "secret")
	w2, _ := doJSON(t, srv2, "POST", "/run", `{"task": "hi"}`)
	if w2.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w2.Code)
	}
}

func TestGetLogs(t *testing.T) {
	buf := logbuf.New(10)
	logger := slog.New(logbuf.NewHandler(slog.NewTextHandler(io.Discard, nil), buf))
	logger.Info("hello", "a", 1)
	logger.Error("bad thing", "err", "boom")

	srv := newTestServer(&mockRunner{}, nil, buf, "")
	req := httptest.NewRequest("GET", "/api/logs?level=error", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var entries []logbuf.Entry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Message != "bad thing" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&mockRunner{}, nil, nil, "")
	req := httptest.NewRequest("OPTIONS", "/run", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS headers")
	}
}
