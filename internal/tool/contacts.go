package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// SortContactsTool sorts a JSON contact list by (last_name, first_name).
type SortContactsTool struct{}

func (t *SortContactsTool) Name() string { return "sort_contacts" }

func (t *SortContactsTool) Description() string {
	return "Sorts a JSON file containing an array of contacts by last name, then first name, and writes the sorted array to the output file."
}

func (t *SortContactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input_location":  map[string]any{"type": "string", "description": "Path to the JSON file containing the contacts"},
			"output_location": map[string]any{"type": "string", "description": "Path where the sorted contacts should be written"},
		},
		"required":             []string{"input_location", "output_location"},
		"additionalProperties": false,
	}
}

func (t *SortContactsTool) Decode(raw json.RawMessage) (Call, error) {
	var c SortContactsCall
	if err := decodeArgs(t, raw, &c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.InputLocation) == "" || strings.TrimSpace(c.OutputLocation) == "" {
		return nil, invalidArgs("sort_contacts: input_location and output_location must be non-empty")
	}
	return &c, nil
}

// SortContactsCall carries the decoded sort_contacts arguments.
type SortContactsCall struct {
	InputLocation  string `json:"input_location"`
	OutputLocation string `json:"output_location"`
}

func (c *SortContactsCall) Invoke(_ context.Context) (protocol.ToolResult, error) {
	data, err := os.ReadFile(c.InputLocation)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return protocol.ToolResult{}, notFound(c.InputLocation)
		}
		return protocol.ToolResult{}, fmt.Errorf("sort_contacts: read: %w", err)
	}

	// Contacts are decoded as generic objects so fields beyond the sort keys
	// survive the round trip.
	var contacts []map[string]any
	if err := json.Unmarshal(data, &contacts); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("sort_contacts: parse %s: %w", c.InputLocation, err)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		li, lj := contactField(contacts[i], "last_name"), contactField(contacts[j], "last_name")
		if li != lj {
			return li < lj
		}
		return contactField(contacts[i], "first_name") < contactField(contacts[j], "first_name")
	})

	out, err := json.MarshalIndent(contacts, "", "    ")
	if err != nil {
		return protocol.ToolResult{}, fmt.Errorf("sort_contacts: encode: %w", err)
	}
	if err := os.WriteFile(c.OutputLocation, out, 0o644); err != nil {
		return protocol.ToolResult{}, fmt.Errorf("sort_contacts: write: %w", err)
	}

	return successResult(
		fmt.Sprintf("Contacts sorted and saved to %s.", c.OutputLocation),
		c.OutputLocation,
	), nil
}

// contactField returns a case-folded string field; a missing or non-string
// field sorts as the empty string.
func contactField(c map[string]any, key string) string {
	s, _ := c[key].(string)
	return strings.ToLower(s)
}
