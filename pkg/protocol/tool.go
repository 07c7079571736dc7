package protocol

// ToolDefinition describes a tool advertised to the model (OpenAI
// function-calling format).
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the function schema within a tool definition.
type ToolFunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewToolDefinition creates a ToolDefinition in OpenAI function-calling format.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: ToolFunctionSchema{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Tool result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResult is the outcome of one tool invocation. It is returned to the
// caller as the HTTP response body and is not persisted beyond the run record.
type ToolResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	OutputLocation string `json:"output_location,omitempty"`
}
