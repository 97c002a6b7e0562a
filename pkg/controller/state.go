package controller

import (
	"time"

	"github.com/kadirpekel/ikoma/pkg/citation"
	"github.com/kadirpekel/ikoma/pkg/plan"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
)

// Role distinguishes who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the run's append-only conversation history.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Reflection is the parsed shape of the LLM's end-of-iteration
// self-assessment, mirroring the original agent's reflect_node JSON.
type Reflection struct {
	TaskCompleted bool   `json:"task_completed"`
	SuccessRate   string `json:"success_rate"`
	Summary       string `json:"summary"`
	NextAction    string `json:"next_action"`
	Reasoning     string `json:"reasoning"`
}

// Config parameterizes one Run call — spec.md §6's Controller API config
// object.
type Config struct {
	RunID           string
	UserID          string
	MaxIterations   int
	TimeLimit       time.Duration
	CheckpointEvery int
	Interactive     bool
}

// State is the full mutable state of one run, threaded through every
// phase. Message history is append-only within a run.
type State struct {
	RunID  string
	UserID string

	Messages         []Message
	MemoryContext    string
	CurrentPlan      *plan.Plan
	ExecutionResults []toolregistry.ExecutionResult
	Reflection       *Reflection
	ReflectionFailed bool
	RawReflection    string

	Citations *citation.Registry

	CurrentIteration int
	MaxIterations    int
	StartTime        time.Time
	TimeLimit        time.Duration
	CheckpointEvery  int

	TerminationReason string
	Done              bool
}

// newState seeds a fresh run state from a user goal and config.
func newState(goal string, cfg Config) *State {
	return &State{
		RunID:            cfg.RunID,
		UserID:           cfg.UserID,
		Messages:         []Message{{Role: RoleUser, Content: goal, At: time.Now().UTC()}},
		Citations:        citation.NewRegistry(),
		CurrentIteration: 0,
		MaxIterations:    cfg.MaxIterations,
		StartTime:        time.Now().UTC(),
		TimeLimit:        cfg.TimeLimit,
		CheckpointEvery:  cfg.CheckpointEvery,
	}
}

// lastUserMessage returns the content of the most recent user message.
func (s *State) lastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// toCheckpointState renders the run state into the generic map the
// checkpointer persists as JSON — deliberately loose-typed so adding a
// field here never requires a schema migration.
func (s *State) toCheckpointState() map[string]any {
	return map[string]any{
		"messages":          s.Messages,
		"memory_context":    s.MemoryContext,
		"current_plan":      s.CurrentPlan,
		"execution_results": s.ExecutionResults,
		"reflection":        s.Reflection,
		"citations":         s.Citations.ToMap(),
		"current_iteration": s.CurrentIteration,
	}
}
