package tool

import (
	"context"
	"encoding/json"

	"github.com/taskbridge-io/taskbridge/pkg/protocol"
)

// Tool describes one local capability advertised to the model. Decode turns
// the model's raw JSON arguments into a strongly-typed, validated Call; no
// tool logic runs until the Call is invoked.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema
	Decode(raw json.RawMessage) (Call, error)
}

// Call is one decoded tool invocation. Each tool has its own call type
// carrying typed argument fields, so dispatch is a closed set of variants
// rather than a map[string]any splat.
type Call interface {
	Invoke(ctx context.Context) (protocol.ToolResult, error)
}

// successResult builds the standard success ToolResult.
func successResult(message, outputLocation string) protocol.ToolResult {
	return protocol.ToolResult{
		Status:         protocol.StatusSuccess,
		Message:        message,
		OutputLocation: outputLocation,
	}
}
