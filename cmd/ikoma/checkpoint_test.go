package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ikoma/pkg/checkpoint"
	ikomaconfig "github.com/kadirpekel/ikoma/pkg/config"
)

// newTestCLI writes a minimal YAML config pointing the checkpoint store at a
// fresh sqlite file in t.TempDir(), and returns a *CLI wired to it.
func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	cfgPath := filepath.Join(t.TempDir(), "ikoma.yaml")

	contents := fmt.Sprintf("conversation_db_driver: sqlite3\nconversation_db_path: %s\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(contents), 0o644))

	return &CLI{Config: cfgPath}
}

func seedCheckpoint(t *testing.T, cli *CLI, runID string, step int, state map[string]any) {
	t.Helper()
	cfg, err := ikomaconfig.Load(cli.Config)
	require.NoError(t, err)

	pool := ikomaconfig.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })

	store, err := checkpoint.GetSingleton(context.Background(), pool, cfg.DatabaseConfig())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), checkpoint.Record{RunID: runID, Step: step, State: state}))
}

func TestCheckpointListCmd_ReportsNoCheckpointsForUnknownRun(t *testing.T) {
	cli := newTestCLI(t)
	cmd := CheckpointListCmd{RunID: "missing-run"}
	require.NoError(t, cmd.Run(cli))
}

func TestCheckpointListAndShow_RoundTrip(t *testing.T) {
	cli := newTestCLI(t)
	seedCheckpoint(t, cli, "run-1", 1, map[string]any{"iteration": float64(1)})
	seedCheckpoint(t, cli, "run-1", 2, map[string]any{"iteration": float64(2)})

	listCmd := CheckpointListCmd{RunID: "run-1"}
	require.NoError(t, listCmd.Run(cli))

	showCmd := CheckpointShowCmd{RunID: "run-1", Step: 2}
	require.NoError(t, showCmd.Run(cli))
}

func TestCheckpointShowCmd_ErrorsForMissingStep(t *testing.T) {
	cli := newTestCLI(t)
	seedCheckpoint(t, cli, "run-1", 1, map[string]any{})

	cmd := CheckpointShowCmd{RunID: "run-1", Step: 99}
	require.Error(t, cmd.Run(cli))
}

func TestCheckpointRmCmd_DeletesStep(t *testing.T) {
	cli := newTestCLI(t)
	seedCheckpoint(t, cli, "run-1", 1, map[string]any{})

	rmCmd := CheckpointRmCmd{RunID: "run-1", Step: 1}
	require.NoError(t, rmCmd.Run(cli))
	require.Error(t, rmCmd.Run(cli))
}

func TestCheckpointClearAllCmd_DeletesEveryStep(t *testing.T) {
	cli := newTestCLI(t)
	seedCheckpoint(t, cli, "run-1", 1, map[string]any{})
	seedCheckpoint(t, cli, "run-1", 2, map[string]any{})

	clearCmd := CheckpointClearAllCmd{RunID: "run-1"}
	require.NoError(t, clearCmd.Run(cli))

	listCmd := CheckpointListCmd{RunID: "run-1"}
	require.NoError(t, listCmd.Run(cli))
}
