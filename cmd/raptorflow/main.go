// Command raptorflow runs the strategy pipeline for one business description
// and prints the research, positioning and ICP results.
//
// Usage:
//
//	raptorflow [-env file] [-subject id] [-option n] [-format yaml|json] "Name, industry, location, description, goals"
//
// Configuration comes from RAPTORFLOW_* environment variables, optionally
// loaded from a .env file. RAPTORFLOW_PROVIDER=mock replays a built-in
// restaurant scenario without network access.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/engine"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/config"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store/sqlite"
)

func main() {
	envFile := flag.String("env", "", "path to .env file (defaults to ./.env when present)")
	subject := flag.String("subject", "", "subject id (derived from the business name when empty)")
	option := flag.Int("option", 0, "positioning option to build ICPs for (0 selects the top-ranked)")
	maxICPs := flag.Int("max-icps", 0, "profiles to generate (0 uses RAPTORFLOW_PIPELINE_MAX_ICPS)")
	format := flag.String("format", "yaml", "output format: yaml or json")
	embeddings := flag.Bool("embeddings", false, "include persona embedding vectors in the output")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall pipeline deadline")
	flag.Parse()

	description := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if description == "" {
		die(2, "a business description argument is required")
	}
	if *format != "yaml" && *format != "json" {
		die(2, "unknown format %q", *format)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		die(2, "load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	p, err := run(ctx, cfg, *subject, description, *option, *maxICPs)
	if p != nil {
		if werr := write(os.Stdout, p, *format, *embeddings); werr != nil {
			die(1, "write output: %v", werr)
		}
	}
	if err != nil {
		var se *core.StageError
		if errors.As(err, &se) {
			die(1, "pipeline halted at %s/%s (%s after %d attempts): %s", se.Stage, se.Step, se.Kind, se.Attempts, se.Message)
		}
		die(1, "pipeline failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, subjectID, description string, option, maxICPs int) (*engine.Pipeline, error) {
	logger := logging.NewLogger(cfg.LoggerConfig()).WithComponent("raptorflow")

	caps, dims, err := capabilities(cfg, logger)
	if err != nil {
		return nil, err
	}

	engineOpts := []func(o *engine.Options){cfg.EngineOptions(logger)}
	engineOpts = append(engineOpts, func(o *engine.Options) { o.ICP.Dimensions = dims })
	if cfg.SQLitePath != "" {
		rec, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer rec.Close()
		engineOpts = append(engineOpts, func(o *engine.Options) { o.Recorder = rec })
	}
	o := engine.New(caps, engineOpts...)
	o.RegisterCallback(engine.NewLoggingCallback(engine.CallbackAfterStage, logger))
	o.RegisterCallback(engine.NewLoggingCallback(engine.CallbackOnError, logger))

	if subjectID == "" {
		subjectID = research.ParseBusiness(description).Subject()
	}
	sel := engine.TopOption
	if option > 0 {
		sel = engine.FixedOption(option)
	}
	return o.Execute(ctx, subjectID, description, sel, engine.WithMaxICPs(maxICPs))
}

func die(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
