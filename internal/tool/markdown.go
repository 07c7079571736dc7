package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// MarkdownIndexTool maps markdown files to their first top-level header.
type MarkdownIndexTool struct{}

func (t *MarkdownIndexTool) Name() string { return "markdown_index" }

func (t *MarkdownIndexTool) Description() string {
	return "Recursively scans a directory for .md files, extracts the first top-level header of each, and writes a filename-to-header JSON index to the output file."
}

func (t *MarkdownIndexTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_location":  map[string]any{"type": "string", "description": "Directory to scan for markdown files"},
			"output_location": map[string]any{"type": "string", "description": "Path where the JSON index should be written"},
		},
		"required":             []string{"input_location", "output_location"},
		"additionalProperties": false,
	}
}

func (t *MarkdownIndexTool) Decode(raw json.RawMessage) (Call, error) {
	var c MarkdownIndexCall
	if err := decodeArgs(t, raw, &c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.InputLocation) == "" || strings.TrimSpace(c.OutputLocation) == "" {
		return nil, invalidArgs("markdown_index: input_location and output_location must be non-empty")
	}
	return &c, nil
}

// MarkdownIndexCall carries the decoded markdown_index arguments.
type MarkdownIndexCall struct {
	InputLocation  string `json:"input_location"`
	OutputLocation string `json:"output_location"`
}

func (c *MarkdownIndexCall) Invoke(_ context.Context) (protocol.ToolResult, error) {
	if _, err := os.Stat(c.InputLocation); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return protocol.ToolResult{}, notFound(c.InputLocation)
		}
		return protocol.ToolResult{}, fmt.Errorf("markdown_index: stat: %w", err)
	}

	index := make(map[string]string)
	err := filepath.WalkDir(c.InputLocation, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		header, err := firstTopHeader(path)
		if err != nil {
			return err
		}
		if header == "" {
			// Files without a top-level header are omitted from the index.
			return nil
		}
		rel, err := filepath.Rel(c.InputLocation, path)
		if err != nil {
			return err
		}
		index[filepath.ToSlash(rel)] = header
		return nil
	})
	if err != nil {
		return protocol.ToolResult{}, fmt.Errorf("markdown_index: scan %s: %w", c.InputLocation, err)
	}

	out, err := json.MarshalIndent(index, "", "    ")
	if err != nil {
		return protocol.ToolResult{}, fmt.Errorf("markdown_index: encode: %w", err)
	}
	if err := os.WriteFile(c.OutputLocation, out, 0o644); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("markdown_index: write: %w", err)
	}

	return successResult(
		fmt.Sprintf("Indexed %d markdown file(s) to %s.", len(index), c.OutputLocation),
		c.OutputLocation,
	), nil
}

// firstTopHeader returns the text of the first line starting with a single
// "# " marker, or "" if the file has none.
func firstTopHeader(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:]), nil
		}
	}
	return "", scanner.Err()
}
