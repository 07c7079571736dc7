package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// BakeCakeTool is a demo tool with no file I/O, kept around as the simplest
// possible end-to-end exercise of the dispatch path.
type BakeCakeTool struct{}

func (t *BakeCakeTool) Name() string { return "bake_cake" }

func (t *BakeCakeTool) Description() string {
	return "Bakes a cake with the specified flavour for a given number of people."
}

func (t *BakeCakeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"number_people": map[string]any{"type": "integer", "description": "Number of people", "minimum": 1},
			"flavour":       map[string]any{"type": "string", "description": "Cake flavour"},
		},
		"required":             []string{"number_people", "flavour"},
		"additionalProperties": false,
	}
}

func (t *BakeCakeTool) Decode(raw json.RawMessage) (Call, error) {
	var c BakeCakeCall
	if err := decodeArgs(t, raw, &c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Flavour) == "" {
		return nil, invalidArgs("bake_cake: flavour must be non-empty")
	}
	return &c, nil
}

// BakeCakeCall carries the decoded bake_cake arguments.
type BakeCakeCall struct {
	NumberPeople int    `json:"number_people"`
	Flavour      string `json:"flavour"`
}

func (c *BakeCakeCall) Invoke(_ context.Context) (protocol.ToolResult, error) {
	return protocol.ToolResult{
		Status:  protocol.StatusSuccess,
		Message: fmt.Sprintf("Your %s cake for %d is now ready.", c.Flavour, c.NumberPeople),
	}, nil
}
