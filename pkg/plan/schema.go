package plan

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// schemaID is the canonical identifier embedded in the generated schema,
// so external validators (and the CI round-trip check) can address it.
const schemaID = "https://ikoma.internal/schema/plan.schema.json"

// GenerateSchema reflects the Plan struct into a draft-2020-12 JSON Schema,
// the same technique functiontool.generateSchema uses to turn a Go struct
// into an LLM-facing tool schema.
func GenerateSchema() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(&Plan{})
	schema.Title = "ikoma Plan Schema"
	schema.Description = "Schema for validating LLM-generated execution plans"
	schema.ID = jsonschema.ID(schemaID)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal plan schema: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	return m, nil
}

// MarshalSchemaJSON renders the canonical schema as indented JSON, the form
// committed to pkg/plan/schema.json and checked by the schema round-trip
// test.
func MarshalSchemaJSON() ([]byte, error) {
	m, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}
