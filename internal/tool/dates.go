package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// dateFormats is the ordered list of accepted date layouts; the first layout
// that parses a line wins.
var dateFormats = []string{
	"2006-01-02",
	"02-Jan-2006",
	"Jan 02, 2006",
	"2006/01/02 15:04:05",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// CountWeekdayTool counts how many dates in a file fall on a given weekday.
type CountWeekdayTool struct{}

func (t *CountWeekdayTool) Name() string { return "count_weekday_occurrences" }

func (t *CountWeekdayTool) Description() string {
	return "Reads a file with one date per line, counts how many dates fall on the given weekday, and writes the count as plain text to the output file. Lines that are not valid dates are skipped."
}

func (t *CountWeekdayTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_location":  map[string]any{"type": "string", "description": "Path to the file containing one date per line"},
			"output_location": map[string]any{"type": "string", "description": "Path where the count should be written"},
			"weekday":         map[string]any{"type": "string", "description": "Weekday to count, e.g. \"Wednesday\""},
		},
		"required":             []string{"input_location", "output_location", "weekday"},
		"additionalProperties": false,
	}
}

func (t *CountWeekdayTool) Decode(raw json.RawMessage) (Call, error) {
	var args struct {
		InputLocation  string `json:"input_location"`
		OutputLocation string `json:"output_location"`
		Weekday        string `json:"weekday"`
	}
	if err := decodeArgs(t, raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.InputLocation) == "" || strings.TrimSpace(args.OutputLocation) == "" {
		return nil, invalidArgs("count_weekday_occurrences: input_location and output_location must be non-empty")
	}
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(args.Weekday))]
	if !ok {
		return nil, invalidArgs("count_weekday_occurrences: unknown weekday %q", args.Weekday)
	}
	return &CountWeekdayCall{
		InputLocation:  args.InputLocation,
		OutputLocation: args.OutputLocation,
		Weekday:        day,
	}, nil
}

// CountWeekdayCall carries the decoded count_weekday_occurrences arguments.
type CountWeekdayCall struct {
	InputLocation  string
	OutputLocation string
	Weekday        time.Weekday
}

func (c *CountWeekdayCall) Invoke(_ context.Context) (protocol.ToolResult, error) {
	f, err := os.Open(c.InputLocation)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return protocol.ToolResult{}, notFound(c.InputLocation)
		}
		return protocol.ToolResult{}, fmt.Errorf("count_weekday_occurrences: open: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		d, ok := parseDate(strings.TrimSpace(scanner.Text()))
		if ok && d.Weekday() == c.Weekday {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("count_weekday_occurrences: read %s: %w", c.InputLocation, err)
	}

	if err := os.WriteFile(c.OutputLocation, []byte(strconv.Itoa(count)), 0o644); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("count_weekday_occurrences: write: %w", err)
	}

	return successResult(
		fmt.Sprintf("Counted %d %s(s) and saved the result to %s.", count, c.Weekday, c.OutputLocation),
		c.OutputLocation,
	), nil
}

// parseDate tries each accepted layout in order; unparseable lines are
// skipped by the caller, never counted and never an error.
func parseDate(line string) (time.Time, bool) {
	if line == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, line); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
