package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateStructured checks payload (the provider's raw structured-output
// text) against schema, returning ErrSchemaViolation wrapped with the
// validator's detail on mismatch. Used by the Gateway at mode
// ModeStructured, and by the Router's L0/L2 fallback levels before
// accepting a routing decision.
func ValidateStructured(schema, payload json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("llm: compile schema: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("llm: compile schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: payload is not valid JSON: %v", ErrSchemaViolation, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
