// Command ikoma runs the Plan-Execute-Reflect agent loop.
//
// Usage:
//
//	ikoma run "research the latest Go release notes"
//	ikoma checkpoint list --run-id run-123
//	ikoma checkpoint show --run-id run-123 --step 4
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/ikoma"
	"github.com/kadirpekel/ikoma/pkg/logger"
)

// CLI defines ikoma's command-line surface.
type CLI struct {
	Run        RunCmd        `cmd:"" help:"Run the PER loop against a goal."`
	Checkpoint CheckpointCmd `cmd:"" help:"Inspect and manage durable checkpoints."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to an optional YAML config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(ikoma.GetVersion().String())
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("ikoma"),
		kong.Description("ikoma - a Plan-Execute-Reflect agent loop"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	out := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, ferr := logger.OpenLogFile(cli.LogFile)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", ferr)
			os.Exit(1)
		}
		defer cleanup()
		out = file
	}
	logger.Init(level, out, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
