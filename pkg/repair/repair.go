// Package repair implements the bounded plan self-repair loop: when the
// planner's JSON fails schema validation, the validation errors are fed
// back to the LLM and it gets a fixed number of chances to produce a
// plan that validates, ported from the original agent's plan_node
// parse-or-fallback behavior, generalized into a real repair
// conversation instead of a single silent fallback plan.
package repair

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/ikoma/pkg/llm"
	"github.com/kadirpekel/ikoma/pkg/llmjson"
	"github.com/kadirpekel/ikoma/pkg/plan"
)

// ErrRepairExhausted is returned when maxRetries repair attempts all
// still fail validation.
type ErrRepairExhausted struct {
	Attempts int
	LastErr  error
}

func (e *ErrRepairExhausted) Error() string {
	return fmt.Sprintf("repair: plan still invalid after %d attempt(s): %v", e.Attempts, e.LastErr)
}

func (e *ErrRepairExhausted) Unwrap() error { return e.LastErr }

// Repairer generates a plan from raw LLM output and, if it fails
// validation, retries with the validation errors folded into a follow-up
// prompt.
type Repairer struct {
	client     llm.Client
	validator  *plan.Validator
	maxRetries int
}

// New builds a Repairer. maxRetries is the number of *additional*
// attempts after the first parse failure (spec.md's MaxPlanRepairRetries,
// default 2).
func New(client llm.Client, validator *plan.Validator, maxRetries int) *Repairer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Repairer{client: client, validator: validator, maxRetries: maxRetries}
}

// Parse validates rawOutput as a plan. If it fails, it repeatedly asks
// the LLM to fix the plan, feeding back the validator's error messages,
// until it validates or the retry budget is exhausted.
func (r *Repairer) Parse(ctx context.Context, rawOutput string) (*plan.Plan, error) {
	p, err := r.validator.Validate(llmjson.ExtractJSON(rawOutput))
	if err == nil {
		return p, nil
	}

	malformed, ok := err.(*plan.MalformedPlanError)
	if !ok {
		return nil, err
	}

	current := rawOutput
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		repairPrompt := buildRepairPrompt(current, malformed)

		response, genErr := r.client.Generate(ctx, repairPrompt)
		if genErr != nil {
			return nil, fmt.Errorf("repair: attempt %d: generate: %w", attempt, genErr)
		}

		p, err = r.validator.Validate(llmjson.ExtractJSON(response))
		if err == nil {
			return p, nil
		}

		malformed, ok = err.(*plan.MalformedPlanError)
		if !ok {
			return nil, err
		}
		current = response
	}

	return nil, &ErrRepairExhausted{Attempts: r.maxRetries, LastErr: malformed}
}

// buildRepairPrompt produces a follow-up prompt listing exactly what was
// wrong with the previous attempt, in the same "return only JSON"
// register as the original agent's planning/reflection prompts.
func buildRepairPrompt(previousOutput string, err *plan.MalformedPlanError) string {
	var b strings.Builder
	b.WriteString("Your previous response was not a valid plan. Fix the following problems and return a corrected JSON plan only, no other text.\n\n")
	b.WriteString("Problems found:\n")
	if len(err.ValidationErrors) > 0 {
		for _, e := range err.ValidationErrors {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	} else {
		b.WriteString("- ")
		b.WriteString(err.Message)
		b.WriteString("\n")
	}
	b.WriteString("\nYour previous response was:\n")
	b.WriteString(previousOutput)
	b.WriteString("\n\nReturn only the corrected JSON plan.")
	return b.String()
}
