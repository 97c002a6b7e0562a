// Package plan defines the typed plan model the PER controller asks the LLM
// to produce, plus the JSON Schema that model reflects into and the runtime
// validator that checks LLM output against it.
package plan

// Step is a single tool invocation within a Plan.
type Step struct {
	Step        int            `json:"step" jsonschema:"required,description=Step number (1-based),minimum=1"`
	ToolName    string         `json:"tool_name" jsonschema:"required,description=Name of the tool to execute"`
	Args        map[string]any `json:"args" jsonschema:"required,description=Arguments for the tool"`
	Description string         `json:"description" jsonschema:"required,description=Human-readable description of what this step accomplishes"`
	Citations   []int          `json:"citations,omitempty" jsonschema:"description=Optional citation IDs supporting this step"`
}

// Plan is the complete structure an LLM must emit for the Plan phase.
type Plan struct {
	Steps     []Step `json:"plan" jsonschema:"required,description=List of plan steps,minItems=1"`
	Reasoning string `json:"reasoning" jsonschema:"required,description=Explanation of why this plan will achieve the goal"`
}
