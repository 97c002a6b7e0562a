package repair

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ikoma/pkg/plan"
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

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

const validPlan = `{"plan":[{"step":1,"tool_name":"read_file","args":{"path":"a.txt"},"description":"read it"}],"reasoning":"because"}`
const malformedPlan = `{"plan":[{"step":1,"tool_name":"read_file"}],"reasoning":"because"}`

func newValidator(t *testing.T) *plan.Validator {
	t.Helper()
	v, err := plan.NewValidator(fakeTools{names: []string{"read_file"}})
	require.NoError(t, err)
	return v
}

func TestRepairer_ValidOnFirstTry(t *testing.T) {
	v := newValidator(t)
	r := New(&scriptedLLM{}, v, 2)

	p, err := r.Parse(context.Background(), validPlan)
	require.NoError(t, err)
	assert.Len(t, p.Steps, 1)
}

func TestRepairer_RecoversOnSecondAttempt(t *testing.T) {
	v := newValidator(t)
	llmClient := &scriptedLLM{responses: []string{validPlan}}
	r := New(llmClient, v, 2)

	p, err := r.Parse(context.Background(), malformedPlan)
	require.NoError(t, err)
	assert.Len(t, p.Steps, 1)
	assert.Equal(t, 1, llmClient.calls)
}

func TestRepairer_ExhaustsRetries(t *testing.T) {
	v := newValidator(t)
	llmClient := &scriptedLLM{responses: []string{malformedPlan, malformedPlan}}
	r := New(llmClient, v, 2)

	_, err := r.Parse(context.Background(), malformedPlan)
	require.Error(t, err)
	var exhausted *ErrRepairExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
}
