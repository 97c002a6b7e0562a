package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kadirpekel/ikoma/pkg/builtintools"
	"github.com/kadirpekel/ikoma/pkg/checkpoint"
	ikomaconfig "github.com/kadirpekel/ikoma/pkg/config"
	"github.com/kadirpekel/ikoma/pkg/controller"
	"github.com/kadirpekel/ikoma/pkg/httpfetch"
	"github.com/kadirpekel/ikoma/pkg/llm"
	"github.com/kadirpekel/ikoma/pkg/logger"
	"github.com/kadirpekel/ikoma/pkg/observability"
	"github.com/kadirpekel/ikoma/pkg/plan"
	"github.com/kadirpekel/ikoma/pkg/repair"
	"github.com/kadirpekel/ikoma/pkg/termination"
	"github.com/kadirpekel/ikoma/pkg/toolregistry"
	"github.com/kadirpekel/ikoma/pkg/vectormemory"
)

// RunCmd drives a single PER loop run to completion.
type RunCmd struct {
	Goal        string `arg:"" help:"The goal to accomplish."`
	RunID       string `help:"Run identifier; defaults to a generated id." default:""`
	UserID      string `help:"User identifier for memory scoping." default:"default"`
	Interactive bool   `help:"Pause for human confirmation at checkpoint iterations."`
}

func (r *RunCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := ikomaconfig.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID := r.RunID
	if runID == "" {
		runID = generateRunID()
	}

	llmClient := llm.New(llm.Options{
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.LLMModel,
		EmbedModel: cfg.LLMEmbedModel,
		APIKey:     cfg.LLMAPIKey,
	})

	mem, err := vectormemory.Open(vectormemory.Config{
		PersistPath: cfg.VectorStorePath,
		Compress:    cfg.VectorStoreCompress,
	})
	if err != nil {
		return fmt.Errorf("open vector memory: %w", err)
	}
	defer mem.Close()

	tools := toolregistry.New()

	fetcher := httpfetch.New(httpfetch.Config{CacheDir: cfg.FetchCacheDir})
	if cfg.DomainFilterFile != "" {
		if err := fetcher.WatchDomainFile(cfg.DomainFilterFile); err != nil {
			logger.GetLogger().Warn("run: domain filter file watch failed", "error", err)
		}
	}
	defer fetcher.Close()

	if err := builtintools.Register(tools, builtintools.Config{
		WorkingDirectory: cfg.WorkingDirectory,
		Fetcher:          fetcher,
	}); err != nil {
		return fmt.Errorf("register builtin tools: %w", err)
	}

	validator, err := plan.NewValidator(tools)
	if err != nil {
		return fmt.Errorf("build plan validator: %w", err)
	}

	metrics := observability.New("ikoma")

	var checkpointStore *checkpoint.Store
	if cfg.CheckpointerEnabled {
		pool := ikomaconfig.NewDBPool()
		defer pool.Close()
		checkpointStore, err = checkpoint.GetSingleton(ctx, pool, cfg.DatabaseConfig())
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
	}

	ctrl := &controller.Controller{
		LLM:        llmClient,
		Repairer:   repair.New(llmClient, validator, cfg.MaxPlanRepairRetries),
		Tools:      tools,
		Memory:     mem,
		Checkpoint: checkpointStore,
		Engine:     termination.NewEngine(cfg.MaxIterations, cfg.MaxRunTime, cfg.CheckpointEvery),
		Metrics:    metrics,
	}
	if r.Interactive {
		ctrl.Confirm = confirmFromStdin
	}

	state, err := ctrl.Run(ctx, r.Goal, controller.Config{
		RunID:           runID,
		UserID:          r.UserID,
		MaxIterations:   cfg.MaxIterations,
		TimeLimit:       cfg.MaxRunTime,
		CheckpointEvery: cfg.CheckpointEvery,
		Interactive:     r.Interactive,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Printf("run %s finished: %s (%d iterations)\n", runID, state.TerminationReason, state.CurrentIteration)
	if state.Reflection != nil {
		fmt.Printf("summary: %s\n", state.Reflection.Summary)
	}
	return nil
}

// confirmFromStdin asks the operator on the terminal whether to continue
// past a human checkpoint — spec.md's interactive checkpoint collaborator.
func confirmFromStdin(ctx context.Context, s *controller.State) (bool, error) {
	fmt.Printf("\n--- checkpoint at iteration %d ---\n", s.CurrentIteration)
	if s.Reflection != nil {
		fmt.Printf("summary so far: %s\n", s.Reflection.Summary)
	}
	fmt.Print("continue? [Y/n] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch line {
	case "n\n", "N\n", "no\n":
		return false, nil
	default:
		return true, nil
	}
}

func generateRunID() string {
	return "run-" + uuid.NewString()
}
