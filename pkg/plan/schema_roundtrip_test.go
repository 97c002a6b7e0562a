package plan

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSchemaRoundtrip re-generates the schema from the Plan struct and
// diffs it against the committed schema.json on the keys that matter for
// validation (type, required, properties) — cosmetic differences like key
// ordering or $id are not load-bearing.
func TestSchemaRoundtrip(t *testing.T) {
	generated, err := GenerateSchema()
	require.NoError(t, err)

	committedBytes, err := os.ReadFile("schema.json")
	require.NoError(t, err)

	var committed map[string]any
	require.NoError(t, json.Unmarshal(committedBytes, &committed))

	require.Equal(t, committed["type"], generated["type"])
	require.ElementsMatch(t, toStrings(t, committed["required"]), toStrings(t, generated["required"]))

	committedProps, ok := committed["properties"].(map[string]any)
	require.True(t, ok)
	generatedProps, ok := generated["properties"].(map[string]any)
	require.True(t, ok)

	for key := range committedProps {
		_, exists := generatedProps[key]
		require.Truef(t, exists, "generated schema is missing property %q present in committed schema.json", key)
	}
	for key := range generatedProps {
		_, exists := committedProps[key]
		require.Truef(t, exists, "committed schema.json is missing property %q present in the generated schema", key)
	}
}

func toStrings(t *testing.T, v any) []string {
	t.Helper()
	arr, ok := v.([]any)
	require.True(t, ok)
	out := make([]string, len(arr))
	for i, e := range arr {
		out[i], ok = e.(string)
		require.True(t, ok)
	}
	return out
}
