package toolregistry

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// toMap marshals a reflected *jsonschema.Schema to a plain map, the same
// round-trip pkg/plan.GenerateSchema uses to hand a schema to callers
// that want map[string]any rather than the typed jsonschema struct.
func toMap(schema *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return m, nil
}
