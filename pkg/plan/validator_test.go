package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTools struct{ names []string }

func (f fakeTools) HasTool(name string) bool {
	for _, n := range f.names {
		if n == name {
			return true
		}
	}
	return false
}

func (f fakeTools) ToolNames() []string { return f.names }

func TestValidator_ValidPlan(t *testing.T) {
	v, err := NewValidator(fakeTools{names: []string{"list_files"}})
	require.NoError(t, err)

	p, err := v.Validate(`{
		"plan": [{"step": 1, "tool_name": "list_files", "args": {}, "description": "list"}],
		"reasoning": "need to see what's there"
	}`)
	require.NoError(t, err)
	assert.Len(t, p.Steps, 1)
	assert.Equal(t, "list_files", p.Steps[0].ToolName)
}

func TestValidator_RejectsMalformedJSON(t *testing.T) {
	v, err := NewValidator(nil)
	require.NoError(t, err)

	_, err = v.Validate(`not json`)
	require.Error(t, err)
	var mpe *MalformedPlanError
	require.ErrorAs(t, err, &mpe)
}

func TestValidator_RejectsMissingRequiredField(t *testing.T) {
	v, err := NewValidator(nil)
	require.NoError(t, err)

	_, err = v.Validate(`{"plan": [{"step": 1, "tool_name": "x", "args": {}}]}`)
	require.Error(t, err)
	var mpe *MalformedPlanError
	require.ErrorAs(t, err, &mpe)
	assert.NotEmpty(t, mpe.ValidationErrors)
}

func TestValidator_RejectsUnknownTool(t *testing.T) {
	v, err := NewValidator(fakeTools{names: []string{"list_files"}})
	require.NoError(t, err)

	_, err = v.Validate(`{
		"plan": [{"step": 1, "tool_name": "delete_everything", "args": {}, "description": "d"}],
		"reasoning": "r"
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete_everything")
}

func TestValidator_RejectsInvalidCitation(t *testing.T) {
	v, err := NewValidator(nil)
	require.NoError(t, err)

	_, err = v.Validate(`{
		"plan": [{"step": 1, "tool_name": "x", "args": {}, "description": "d", "citations": [0]}],
		"reasoning": "r"
	}`)
	require.Error(t, err)
}
