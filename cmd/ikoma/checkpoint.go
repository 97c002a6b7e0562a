package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/ikoma/pkg/checkpoint"
	ikomaconfig "github.com/kadirpekel/ikoma/pkg/config"
)

// CheckpointCmd groups checkpoint inspection and maintenance subcommands.
type CheckpointCmd struct {
	List     CheckpointListCmd     `cmd:"" help:"List checkpointed steps for a run."`
	Show     CheckpointShowCmd     `cmd:"" help:"Show the persisted state of one checkpoint step."`
	Rm       CheckpointRmCmd       `cmd:"" help:"Delete a single checkpoint step."`
	ClearAll CheckpointClearAllCmd `cmd:"" help:"Delete every checkpoint step for a run."`
}

func openCheckpointStore(cli *CLI) (*checkpoint.Store, func(), error) {
	cfg, err := ikomaconfig.Load(cli.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool := ikomaconfig.NewDBPool()
	store, err := checkpoint.GetSingleton(context.Background(), pool, cfg.DatabaseConfig())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return store, func() { pool.Close() }, nil
}

// CheckpointListCmd lists every persisted step for a run, oldest first.
type CheckpointListCmd struct {
	RunID string `required:"" help:"Run identifier."`
}

func (c *CheckpointListCmd) Run(cli *CLI) error {
	store, cleanup, err := openCheckpointStore(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := store.List(context.Background(), c.RunID)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("no checkpoints recorded for run %s\n", c.RunID)
		return nil
	}
	for _, rec := range records {
		fmt.Printf("step %d  created_at %s\n", rec.Step, rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

// CheckpointShowCmd prints the full persisted state of one step as JSON.
type CheckpointShowCmd struct {
	RunID string `required:"" help:"Run identifier."`
	Step  int    `required:"" help:"Step number to show."`
}

func (c *CheckpointShowCmd) Run(cli *CLI) error {
	store, cleanup, err := openCheckpointStore(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := store.List(context.Background(), c.RunID)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	for _, rec := range records {
		if rec.Step != c.Step {
			continue
		}
		data, err := json.MarshalIndent(rec.State, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	return fmt.Errorf("no checkpoint for run %s step %d", c.RunID, c.Step)
}

// CheckpointRmCmd deletes a single checkpointed step.
type CheckpointRmCmd struct {
	RunID string `required:"" help:"Run identifier."`
	Step  int    `required:"" help:"Step number to delete."`
}

func (c *CheckpointRmCmd) Run(cli *CLI) error {
	store, cleanup, err := openCheckpointStore(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.DeleteStep(context.Background(), c.RunID, c.Step); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	fmt.Printf("deleted run %s step %d\n", c.RunID, c.Step)
	return nil
}

// CheckpointClearAllCmd deletes every step recorded for a run.
type CheckpointClearAllCmd struct {
	RunID string `required:"" help:"Run identifier."`
}

func (c *CheckpointClearAllCmd) Run(cli *CLI) error {
	store, cleanup, err := openCheckpointStore(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.DeleteRun(context.Background(), c.RunID); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}
	fmt.Printf("cleared all checkpoints for run %s\n", c.RunID)
	return nil
}
