package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

const maxRecentLogs = 10

// RecentLogLinesTool extracts the first line of the most recent .log files.
type RecentLogLinesTool struct{}

func (t *RecentLogLinesTool) Name() string { return "recent_log_lines" }

func (t *RecentLogLinesTool) Description() string {
	return "Finds the 10 most recently modified .log files in a directory and writes the first line of each, most recent first, to the output file."
}

func (t *RecentLogLinesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_location":  map[string]any{"type": "string", "description": "Directory containing the .log files"},
			"output_location": map[string]any{"type": "string", "description": "Path where the extracted lines should be written"},
		},
		"required":             []string{"input_location", "output_location"},
		"additionalProperties": false,
	}
}

func (t *RecentLogLinesTool) Decode(raw json.RawMessage) (Call, error) {
	var c RecentLogLinesCall
	if err := decodeArgs(t, raw, &c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.InputLocation) == "" || strings.TrimSpace(c.OutputLocation) == "" {
		return nil, invalidArgs("recent_log_lines: input_location and output_location must be non-empty")
	}
	return &c, nil
}

// RecentLogLinesCall carries the decoded recent_log_lines arguments.
type RecentLogLinesCall struct {
	InputLocation  string `json:"input_location"`
	OutputLocation string `json:"output_location"`
}

type logFile struct {
	path    string
	modTime time.Time
}

func (c *RecentLogLinesCall) Invoke(_ context.Context) (protocol.ToolResult, error) {
	entries, err := os.ReadDir(c.InputLocation)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return protocol.ToolResult{}, notFound(c.InputLocation)
		}
		return protocol.ToolResult{}, fmt.Errorf("recent_log_lines: read dir: %w", err)
	}

	var files []logFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return protocol.ToolResult{}, fmt.Errorf("recent_log_lines: stat %s: %w", e.Name(), err)
		}
		files = append(files, logFile{
			path:    filepath.Join(c.InputLocation, e.Name()),
			modTime: info.ModTime(),
		})
	}

	// Most recent first; ties break on path so the output is deterministic.
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path < files[j].path
	})
	if len(files) > maxRecentLogs {
		files = files[:maxRecentLogs]
	}

	lines := make([]string, 0, len(files))
	for _, f := range files {
		line, err := firstLine(f.path)
		if err != nil {
			return protocol.ToolResult{}, fmt.Errorf("recent_log_lines: read %s: %w", f.path, err)
		}
		lines = append(lines, line)
	}

	var out string
	if len(lines) > 0 {
		out = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(c.OutputLocation, []byte(out), 0o644); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("recent_log_lines: write: %w", err)
	}

	return successResult(
		fmt.Sprintf("Extracted first lines of %d log file(s) to %s.", len(lines), c.OutputLocation),
		c.OutputLocation,
	), nil
}

// firstLine returns the trimmed first line of a file. An empty file yields
// an empty line rather than an error.
func firstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line), nil
}
