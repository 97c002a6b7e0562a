// Package termination implements the PER loop's stopping criteria as pure
// functions of run state, ported one-for-one from the original agent's
// heuristics package (agent/heuristics/*.py).
package termination

import "time"

// State is the subset of run state a Criterion inspects. It is
// deliberately a value type, not an interface onto the controller's
// internal state, so criteria stay pure functions that are trivial to unit
// test in isolation.
type State struct {
	CurrentIteration int
	MaxIterations    int

	StartTime     time.Time
	HasStartTime  bool
	TimeLimit     time.Duration
	HasTimeLimit  bool

	TaskCompleted bool
	NextAction    string

	// CheckpointEvery is the iteration stride for HumanCheckpointCriterion.
	// Zero defers to the criterion's Every stride; a negative value, or zero
	// with a zero Every, disables checkpoint requests.
	CheckpointEvery int
}

// Criterion decides whether the PER loop should stop given the current
// state. Criteria never mutate state and never have side effects; the
// controller is responsible for stopping as soon as any criterion it runs
// returns true.
type Criterion interface {
	ShouldStop(s State) bool
}

// IterationLimitCriterion stops the run once CurrentIteration reaches
// MaxIterations.
type IterationLimitCriterion struct{}

func (IterationLimitCriterion) ShouldStop(s State) bool {
	max := s.MaxIterations
	if max == 0 {
		max = 25
	}
	return s.CurrentIteration >= max
}

// TimeLimitCriterion stops the run once wall-clock time since StartTime
// exceeds TimeLimit. A zero StartTime (HasStartTime == false) never stops
// the run — there is nothing to measure against.
type TimeLimitCriterion struct {
	// DefaultLimit is used when the state carries no explicit TimeLimit.
	DefaultLimit time.Duration

	// Now is overridable for tests; defaults to time.Now when nil.
	Now func() time.Time
}

func (c TimeLimitCriterion) ShouldStop(s State) bool {
	if !s.HasStartTime {
		return false
	}
	limit := s.TimeLimit
	if !s.HasTimeLimit || limit == 0 {
		limit = c.DefaultLimit
	}
	if limit == 0 {
		return false
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().Sub(s.StartTime) >= limit
}

// GoalSatisfiedCriterion stops the run once the Reflect phase reports the
// task complete, or requests an explicit "end".
type GoalSatisfiedCriterion struct{}

func (GoalSatisfiedCriterion) ShouldStop(s State) bool {
	return s.TaskCompleted || s.NextAction == "end"
}

// HumanCheckpointCriterion never stops the run on its own (ShouldStop
// always returns false) — it only decides whether the controller should
// pause for a human checkpoint this iteration, via ShouldCheckpoint.
type HumanCheckpointCriterion struct {
	// Every is the fallback stride when State.CheckpointEvery is zero.
	Every int
}

func (HumanCheckpointCriterion) ShouldStop(State) bool { return false }

// ShouldCheckpoint reports whether iteration s.CurrentIteration should pause
// for human confirmation. A zero s.CheckpointEvery falls back to c.Every;
// when the resulting stride is zero or negative, checkpointing is disabled
// — Go has no None, so the zero value plays that role here.
func (c HumanCheckpointCriterion) ShouldCheckpoint(s State) bool {
	every := s.CheckpointEvery
	if every == 0 {
		every = c.Every
	}
	if every <= 0 {
		return false
	}
	return s.CurrentIteration%every == 0
}

// Engine runs a fixed set of criteria and reports the first one that fires.
type Engine struct {
	criteria   []Criterion
	checkpoint HumanCheckpointCriterion
}

// NewEngine builds the standard termination engine: iteration limit, time
// limit, goal-satisfied, in that order (the order the original agent checks
// them in its should_stop orchestration).
func NewEngine(maxIterations int, timeLimit time.Duration, checkpointEvery int) *Engine {
	return &Engine{
		criteria: []Criterion{
			IterationLimitCriterion{},
			TimeLimitCriterion{DefaultLimit: timeLimit},
			GoalSatisfiedCriterion{},
		},
		checkpoint: HumanCheckpointCriterion{Every: checkpointEvery},
	}
}

// ShouldStop returns true and the name of the first criterion that fires,
// or false, "" if the run should continue.
func (e *Engine) ShouldStop(s State) (bool, string) {
	for _, c := range e.criteria {
		if c.ShouldStop(s) {
			return true, criterionName(c)
		}
	}
	return false, ""
}

// ShouldCheckpoint reports whether this iteration should pause for a human
// checkpoint.
func (e *Engine) ShouldCheckpoint(s State) bool {
	return e.checkpoint.ShouldCheckpoint(s)
}

func criterionName(c Criterion) string {
	switch c.(type) {
	case IterationLimitCriterion:
		return "iteration limit"
	case TimeLimitCriterion:
		return "time limit"
	case GoalSatisfiedCriterion:
		return "goal satisfied"
	default:
		return "unknown"
	}
}
