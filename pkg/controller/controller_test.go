package controller

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ikoma/pkg/plan"
	"github.com/kadirpekel/ikoma/pkg/repair"
	"github.com/kadirpekel/ikoma/pkg/termination"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
	"github.com/kadirpekel/ikoma/pkg/vectormemory"
)

type listFilesArgs struct {
	Dir string `json:"dir,omitempty"`
}

type fakeLLM struct {
	planResponse       string
	reflectionResponse string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Return a JSON plan") {
		return f.planResponse, nil
	}
	return f.reflectionResponse, nil
}

func (f *fakeLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestRegistry(t *testing.T) *toolregistry.Registry {
	t.Helper()
	r := toolregistry.New()
	require.NoError(t, toolregistry.Register[listFilesArgs](r, "list_files", "lists files", "fs", func(ctx context.Context, args map[string]any) (any, error) {
		return []string{"a.txt", "b.txt"}, nil
	}))
	return r
}

func TestController_Run_CompletesOnFirstReflection(t *testing.T) {
	tools := newTestRegistry(t)
	validator, err := plan.NewValidator(tools)
	require.NoError(t, err)

	llmClient := &fakeLLM{
		planResponse:       `{"plan":[{"step":1,"tool_name":"list_files","args":{},"description":"list files"}],"reasoning":"need to see files"}`,
		reflectionResponse: `{"task_completed":true,"success_rate":"100%","summary":"done","next_action":"end","reasoning":"goal satisfied"}`,
	}

	mem, err := vectormemory.Open(vectormemory.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	c := &Controller{
		LLM:      llmClient,
		Repairer: repair.New(llmClient, validator, 2),
		Tools:    tools,
		Memory:   mem,
		Engine:   termination.NewEngine(25, 0, 0),
	}

	state, err := c.Run(context.Background(), "please list the files", Config{
		RunID: "run-1", UserID: "user-1", MaxIterations: 25,
	})
	require.NoError(t, err)

	assert.True(t, state.Done)
	assert.Equal(t, "goal satisfied", state.TerminationReason)
	assert.Len(t, state.ExecutionResults, 1)
	assert.Empty(t, state.ExecutionResults[0].Error)
}

func TestController_Run_StopsOnIterationLimit(t *testing.T) {
	tools := newTestRegistry(t)
	validator, err := plan.NewValidator(tools)
	require.NoError(t, err)

	llmClient := &fakeLLM{
		planResponse:       `{"plan":[{"step":1,"tool_name":"list_files","args":{},"description":"list"}],"reasoning":"loop"}`,
		reflectionResponse: `{"task_completed":false,"success_rate":"0%","summary":"not done","next_action":"continue","reasoning":"keep going"}`,
	}

	mem, err := vectormemory.Open(vectormemory.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	c := &Controller{
		LLM:      llmClient,
		Repairer: repair.New(llmClient, validator, 2),
		Tools:    tools,
		Memory:   mem,
		Engine:   termination.NewEngine(2, 0, 0),
	}

	state, err := c.Run(context.Background(), "keep looping", Config{
		RunID: "run-2", UserID: "user-2", MaxIterations: 2,
	})
	require.NoError(t, err)

	assert.True(t, state.Done)
	assert.Equal(t, "iteration limit", state.TerminationReason)
	assert.Equal(t, 2, state.CurrentIteration)
}

func TestController_Run_ContinuesPastFailingStep(t *testing.T) {
	tools := toolregistry.New()
	require.NoError(t, toolregistry.Register[listFilesArgs](tools, "ok_tool", "works", "fs", func(ctx context.Context, args map[string]any) (any, error) {
		return "done", nil
	}))
	llmClient := &fakeLLM{
		planResponse:       `{"plan":[{"step":1,"tool_name":"missing_tool","args":{},"description":"will fail"},{"step":2,"tool_name":"ok_tool","args":{},"description":"should still run"}],"reasoning":"test partial failure"}`,
		reflectionResponse: `{"task_completed":true,"success_rate":"50%","summary":"partial","next_action":"end","reasoning":"done"}`,
	}

	validator2, err := plan.NewValidator(fakeToolsAllowingMissing{tools})
	require.NoError(t, err)

	mem, err := vectormemory.Open(vectormemory.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	c := &Controller{
		LLM:      llmClient,
		Repairer: repair.New(llmClient, validator2, 0),
		Tools:    tools,
		Memory:   mem,
		Engine:   termination.NewEngine(25, 0, 0),
	}

	state, err := c.Run(context.Background(), "run two steps", Config{
		RunID: "run-3", UserID: "user-3", MaxIterations: 25,
	})
	require.NoError(t, err)
	require.Len(t, state.ExecutionResults, 2)
	assert.NotEmpty(t, state.ExecutionResults[0].Error)
	assert.Empty(t, state.ExecutionResults[1].Error)
}

// fakeToolsAllowingMissing wraps a real registry but also accepts
// "missing_tool" as a known name, simulating a plan step that passes
// validation but fails at execution time (e.g. a tool removed after the
// plan was generated).
type fakeToolsAllowingMissing struct {
	*toolregistry.Registry
}

func (f fakeToolsAllowingMissing) HasTool(name string) bool {
	return name == "missing_tool" || f.Registry.HasTool(name)
}

func (f fakeToolsAllowingMissing) ToolNames() []string {
	return append(f.Registry.ToolNames(), "missing_tool")
}

func TestController_TimeoutHelper(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
