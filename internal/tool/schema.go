package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// decodeArgs validates raw against the tool's declared parameter schema and
// unmarshals it into v. All failures wrap ErrInvalidArgs so the dispatcher
// classifies them as bad input, never as internal faults.
func decodeArgs(t Tool, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := validateSchema(t.Parameters(), raw); err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", t.Name(), invalidArgs("%v", err))
	}
	return nil
}

func validateSchema(schema map[string]any, raw json.RawMessage) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return invalidArgs("%v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return invalidArgs("%s", strings.Join(msgs, "; "))
	}
	return nil
}
