package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kadirpekel/ikoma/pkg/llmjson"
)

// MalformedPlanError is returned when LLM output fails JSON parsing or
// schema validation. ValidationErrors holds one human-readable message per
// schema violation, suitable for feeding back into a repair prompt.
type MalformedPlanError struct {
	Message          string
	ValidationErrors []string
	Cause            error
}

func (e *MalformedPlanError) Error() string {
	if len(e.ValidationErrors) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.ValidationErrors, "; "))
}

func (e *MalformedPlanError) Unwrap() error { return e.Cause }

// ToolNameValidator reports whether a tool name is known. The plan
// validator asks it so invalid tool references are caught alongside
// structural schema errors, mirroring PlanStep.validate_tool_name in the
// original model.
type ToolNameValidator interface {
	HasTool(name string) bool
	ToolNames() []string
}

// Validator validates raw plan JSON against the canonical schema and,
// optionally, a registry of known tool names.
type Validator struct {
	schema *jsonschema.Schema
	tools  ToolNameValidator
}

// NewValidator compiles the canonical plan schema once. tools may be nil to
// skip tool-name existence checks (useful in unit tests).
func NewValidator(tools ToolNameValidator) (*Validator, error) {
	schemaMap, err := GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("generate plan schema: %w", err)
	}

	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal plan schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema for compiler: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaID, doc); err != nil {
		return nil, fmt.Errorf("add plan schema resource: %w", err)
	}
	compiled, err := c.Compile(schemaID)
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}

	return &Validator{schema: compiled, tools: tools}, nil
}

// Validate parses planJSON, strips common LLM markdown fencing first (the
// caller is expected to have already done this via llmjson.ExtractJSON, but
// Validate is defensive), validates it against the schema, and checks every
// step's tool_name against the tool registry.
func (v *Validator) Validate(planJSON string) (*Plan, error) {
	planJSON = llmjson.ExtractJSON(planJSON)

	var raw any
	if err := json.Unmarshal([]byte(planJSON), &raw); err != nil {
		return nil, &MalformedPlanError{
			Message: "plan is not valid JSON",
			Cause:   err,
		}
	}

	if err := v.schema.Validate(raw); err != nil {
		return nil, &MalformedPlanError{
			Message:          "plan failed schema validation",
			ValidationErrors: flattenValidationError(err),
			Cause:            err,
		}
	}

	var p Plan
	if err := json.Unmarshal([]byte(planJSON), &p); err != nil {
		return nil, &MalformedPlanError{Message: "plan did not decode into the expected shape", Cause: err}
	}

	if v.tools != nil {
		var unknown []string
		for _, step := range p.Steps {
			if !v.tools.HasTool(step.ToolName) {
				unknown = append(unknown, fmt.Sprintf(
					"step %d: tool %q not found (available: %s)",
					step.Step, step.ToolName, strings.Join(v.tools.ToolNames(), ", ")))
			}
		}
		if len(unknown) > 0 {
			return nil, &MalformedPlanError{
				Message:          "plan references unknown tools",
				ValidationErrors: unknown,
			}
		}
	}

	for _, step := range p.Steps {
		for _, c := range step.Citations {
			if c < 1 {
				return nil, &MalformedPlanError{
					Message:          "plan has invalid citation reference",
					ValidationErrors: []string{fmt.Sprintf("step %d: citation id %d must be >= 1", step.Step, c)},
				}
			}
		}
	}

	return &p, nil
}

// flattenValidationError turns a jsonschema validation error tree into a
// flat list of "<path>: <message>" strings, one per leaf cause, the shape
// the repair prompt template expects.
func flattenValidationError(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/"
			if len(e.InstanceLocation) > 0 {
				loc = "/" + strings.Join(e.InstanceLocation, "/")
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Error()))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
