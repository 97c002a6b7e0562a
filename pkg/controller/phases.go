package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/ikoma/pkg/extract"
	"github.com/kadirpekel/ikoma/pkg/llmjson"
	"github.com/kadirpekel/ikoma/pkg/logger"
	"github.com/kadirpekel/ikoma/pkg/plan"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
)

// llmCallTimeout bounds a single LLM round-trip — spec.md §5's
// "implementation-defined timeout" per LLM call.
const llmCallTimeout = 30 * time.Second

const memoryNamespaceRoot = "memories"

// retrieve queries vector memory in namespace ("memories", user_id) with
// the latest user message, attaching up to 3 results as MemoryContext.
// Failures are logged and treated as empty context, never fatal.
func (c *Controller) retrieve(ctx context.Context, state *State) error {
	if c.Memory == nil {
		return nil
	}

	query := state.lastUserMessage()
	if query == "" {
		return nil
	}

	embedding, err := c.LLM.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	results, err := c.Memory.Search(ctx, []string{memoryNamespaceRoot, state.UserID}, embedding, 3)
	if err != nil {
		return fmt.Errorf("search memory: %w", err)
	}

	if len(results) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Previous relevant context:\n")
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	state.MemoryContext = b.String()
	return nil
}

// plan invokes the LLM with the tool catalog, the user goal, and optional
// memory context, validates the response (repairing up to
// MaxPlanRepairRetries times), and falls back to a degenerate single-step
// plan if it's still invalid.
func (c *Controller) plan(ctx context.Context, state *State) error {
	prompt := c.buildPlanningPrompt(state)

	callCtx, cancel := withTimeout(ctx, llmCallTimeout)
	defer cancel()

	var response string
	err := runBounded(callCtx, func(ctx context.Context) error {
		r, genErr := c.LLM.Generate(ctx, prompt)
		response = r
		return genErr
	})
	if err != nil {
		response, err = retryOnce(ctx, c.LLM, prompt)
		if err != nil {
			state.CurrentPlan = fallbackPlan()
			return nil
		}
	}

	p, err := c.Repairer.Parse(ctx, response)
	if err != nil {
		logger.GetLogger().Warn("controller: plan repair exhausted, using fallback plan", "error", err, "run_id", state.RunID)
		if c.Metrics != nil {
			c.Metrics.RecordPlanRepairOutcome("exhausted")
		}
		state.CurrentPlan = fallbackPlan()
		return nil
	}
	if c.Metrics != nil {
		c.Metrics.RecordPlanRepairOutcome("accepted")
	}

	state.CurrentPlan = p
	return nil
}

// fallbackPlan mirrors plan_node's degenerate single-step recovery plan
// when the LLM output can never be coaxed into a valid shape.
func fallbackPlan() *plan.Plan {
	return &plan.Plan{
		Steps: []plan.Step{{
			Step:        1,
			ToolName:    "list_files",
			Args:        map[string]any{},
			Description: "List available files as a starting point",
		}},
		Reasoning: "fallback plan: planner output could not be repaired into a valid plan",
	}
}

func (c *Controller) buildPlanningPrompt(state *State) string {
	var b strings.Builder
	b.WriteString("You are a planning assistant. Based on the user's request, create a detailed plan of tool calls.\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range c.Tools.List() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.Name, t.Category, t.Description)
	}
	b.WriteString("\nReturn a JSON plan: {\"plan\": [{\"step\": 1, \"tool_name\": \"...\", \"args\": {...}, \"description\": \"...\"}], \"reasoning\": \"...\"}\n")
	b.WriteString("Return only the JSON plan, no other text.\n\n")
	fmt.Fprintf(&b, "User's request: %s", state.lastUserMessage())
	if state.MemoryContext != "" {
		b.WriteString("\n\nRelevant context from previous conversations:\n")
		b.WriteString(state.MemoryContext)
	}
	return b.String()
}

// execute runs each plan step in order, continuing past a failing step —
// spec.md §4.9's Execute transition explicitly does not abort the turn on
// a tool error.
func (c *Controller) execute(ctx context.Context, state *State) {
	state.ExecutionResults = nil
	if state.CurrentPlan == nil {
		return
	}

	for _, step := range state.CurrentPlan.Steps {
		var result toolregistry.ExecutionResult
		_ = runBounded(ctx, func(ctx context.Context) error {
			result = c.Tools.Invoke(ctx, step.ToolName, step.Args)
			return nil
		})
		state.ExecutionResults = append(state.ExecutionResults, result)
		registerCitation(state, result)
	}
}

// registerCitation adds a citation source whenever a tool execution's
// output is fetched web content, so the reflection and final response can
// reference it by [[n]] marker.
func registerCitation(state *State, result toolregistry.ExecutionResult) {
	if result.Error != "" {
		return
	}
	content, ok := result.Output.(extract.Content)
	if !ok {
		return
	}
	preview := content.Title
	if len(content.Chunks) > 0 {
		preview = content.Chunks[0]
	}
	state.Citations.AddCitation(content.URL, content.Title, preview, "web", content.Quality.Overall)
}

// reflect sends the execution transcript and original goal to the LLM,
// parses the Reflection JSON, and increments CurrentIteration
// unconditionally (even on reflection failure).
func (c *Controller) reflect(ctx context.Context, state *State) {
	defer func() {
		state.CurrentIteration++
		if c.Metrics != nil {
			c.Metrics.RecordIteration(state.RunID)
		}
	}()

	prompt := c.buildReflectionPrompt(state)

	callCtx, cancel := withTimeout(ctx, llmCallTimeout)
	defer cancel()

	var response string
	err := runBounded(callCtx, func(ctx context.Context) error {
		r, genErr := c.LLM.Generate(ctx, prompt)
		response = r
		return genErr
	})
	if err != nil {
		response, err = retryOnce(ctx, c.LLM, prompt)
	}
	if err != nil {
		state.ReflectionFailed = true
		state.Reflection = &Reflection{NextAction: "end"}
		return
	}

	var r Reflection
	if decodeErr := decodeJSON(llmjson.ExtractJSON(response), &r); decodeErr != nil {
		state.ReflectionFailed = true
		state.RawReflection = response
		state.Reflection = &Reflection{NextAction: "end"}
		return
	}

	state.Reflection = &r
}

func (c *Controller) buildReflectionPrompt(state *State) string {
	var b strings.Builder
	b.WriteString("Analyze the execution results and determine if the user's request has been satisfied.\n\n")
	fmt.Fprintf(&b, "Original request: %s\n\n", state.lastUserMessage())
	b.WriteString("Execution results:\n")
	for _, r := range state.ExecutionResults {
		status := "ok"
		if r.Error != "" {
			status = "error: " + r.Error
		}
		fmt.Fprintf(&b, "- %s (%s): %v\n", r.ToolName, status, r.Output)
	}
	b.WriteString("\nReturn JSON: {\"task_completed\": true/false, \"success_rate\": \"...\", \"summary\": \"...\", \"next_action\": \"continue\"|\"end\", \"reasoning\": \"...\"}\n")
	b.WriteString("Return only the JSON, no other text.")
	return b.String()
}

// retryOnce re-invokes the LLM a single time after a short backoff —
// spec.md §4.9's "LLM call failures are retried once with a short
// backoff inside the phase" failure semantics.
func retryOnce(ctx context.Context, client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}
	return client.Generate(ctx, prompt)
}
