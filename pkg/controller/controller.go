// Package controller implements the Plan-Execute-Reflect state machine:
// Retrieve -> Plan -> Execute -> Reflect -> (Checkpoint) -> {Retrieve |
// Stop}, ported from the original agent's LangGraph node graph into a
// single hand-rolled Go control loop.
package controller

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/ikoma/pkg/checkpoint"
	"github.com/kadirpekel/ikoma/pkg/llm"
	"github.com/kadirpekel/ikoma/pkg/logger"
	"github.com/kadirpekel/ikoma/pkg/observability"
	"github.com/kadirpekel/ikoma/pkg/repair"
	"github.com/kadirpekel/ikoma/pkg/termination"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
	"github.com/kadirpekel/ikoma/pkg/vectormemory"
)

// Confirm is the human-checkpoint collaborator: called when interactive
// mode is on and the termination engine says a checkpoint confirmation is
// due. Returning false forces termination of the run.
type Confirm func(ctx context.Context, s *State) (bool, error)

// Controller ties together every PER collaborator: the LLM, the plan
// repairer, the tool registry, vector memory, the checkpointer, and the
// termination engine.
type Controller struct {
	LLM        llm.Client
	Repairer   *repair.Repairer
	Tools      *toolregistry.Registry
	Memory     *vectormemory.Store
	Checkpoint *checkpoint.Store // nil disables checkpointing
	Engine     *termination.Engine
	Confirm    Confirm // nil disables interactive checkpoints
	Metrics    *observability.Metrics
}

// Run drives one full PER loop for goal until a termination criterion
// fires, returning the final state.
func (c *Controller) Run(ctx context.Context, goal string, cfg Config) (*State, error) {
	state := newState(goal, cfg)
	runStart := time.Now()

	for {
		if err := c.retrieve(ctx, state); err != nil {
			logger.GetLogger().Warn("controller: retrieve failed, continuing with empty memory context", "error", err, "run_id", state.RunID)
		}

		if err := c.plan(ctx, state); err != nil {
			return state, fmt.Errorf("controller: plan phase: %w", err)
		}

		c.execute(ctx, state)

		c.reflect(ctx, state)

		stop, reason := c.checkpointAndDecide(ctx, state)
		state.TerminationReason = reason
		if stop {
			state.Done = true
			break
		}

		if ctx.Err() != nil {
			state.TerminationReason = "cancelled"
			state.Done = true
			break
		}
	}

	c.persistMemory(ctx, state)

	if c.Metrics != nil {
		c.Metrics.RecordRunDuration(state.TerminationReason, time.Since(runStart))
	}
	return state, nil
}

// checkpointAndDecide persists state (if enabled), runs the interactive
// confirmation collaborator (if due), and consults the termination
// engine — the Checkpoint phase of spec.md §4.9.
func (c *Controller) checkpointAndDecide(ctx context.Context, state *State) (bool, string) {
	if c.Checkpoint != nil {
		rec := checkpoint.Record{RunID: state.RunID, Step: state.CurrentIteration, State: state.toCheckpointState()}
		if err := c.Checkpoint.Save(ctx, rec); err != nil {
			logger.GetLogger().Warn("controller: checkpoint write failed, continuing", "error", err, "run_id", state.RunID)
		}
	}

	if c.Confirm != nil && c.Engine.ShouldCheckpoint(c.terminationState(state)) {
		ok, err := c.Confirm(ctx, state)
		if err != nil {
			logger.GetLogger().Warn("controller: confirmation collaborator errored, treating as decline", "error", err, "run_id", state.RunID)
			return true, "human_checkpoint_declined"
		}
		if !ok {
			return true, "human_checkpoint_declined"
		}
	}

	stop, reason := c.Engine.ShouldStop(c.terminationState(state))
	return stop, reason
}

func (c *Controller) terminationState(state *State) termination.State {
	return termination.State{
		CurrentIteration: state.CurrentIteration,
		MaxIterations:    state.MaxIterations,
		StartTime:        state.StartTime,
		HasStartTime:     true,
		TimeLimit:        state.TimeLimit,
		HasTimeLimit:     state.TimeLimit > 0,
		TaskCompleted:    state.Reflection != nil && state.Reflection.TaskCompleted,
		NextAction:       nextActionOf(state),
		CheckpointEvery:  state.CheckpointEvery,
	}
}

func nextActionOf(state *State) string {
	if state.Reflection == nil {
		return ""
	}
	return state.Reflection.NextAction
}

// runBounded executes fn as a single atomic operation against ctx using
// errgroup, so a cancellation signal received mid-flight still lets the
// in-flight LLM/tool call finish before the controller observes it —
// spec.md §5's "completes the current phase's atomic operation, then
// stops" requirement.
func runBounded(ctx context.Context, fn func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fn(gctx) })
	return g.Wait()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
