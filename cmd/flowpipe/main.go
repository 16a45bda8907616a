// Package main implements the flowpipe command, which assembles a pipeline from
// a configuration file and runs it to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/c360/flowpipe/elements/basic"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/module"
	"github.com/c360/flowpipe/pipeline"
	"github.com/c360/flowpipe/registry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "flowpipe"
)

// moduleSection is the configuration section read by the module manager.
const moduleSection = "ModuleManager"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		slog.Error("flowpipe failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet(stderr)
	cli, err := parseFlags(fs, args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		printDetailedHelp(fs)
		return nil
	}

	logger := setupLogger(stderr, cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)
	logger.Info("Starting flowpipe", "build_time", BuildTime, "config_path", cli.ConfigPath, "pipeline", cli.Pipeline)

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pipeCfg, ok := cfg.Child(cli.Pipeline)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: section %q", errors.ErrMissingConfig, cli.Pipeline),
			"main", "run", "read pipeline section")
	}

	metrics := metric.NewMetricsRegistry()
	f, err := setupFactory(cfg, cli.Module, metrics, logger)
	if err != nil {
		return err
	}

	runner, err := pipeline.Build(pipeCfg, f, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = runner.Close() }()

	if cli.Validate {
		logger.Info("Configuration is valid", "nodes", len(runner.Nodes()))
		return nil
	}
	return execute(ctx, runner, cli.MetricsPort, metrics, logger)
}

func newFlagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

// setupFactory registers the built in types and the types of the modules
// selected by the manager named key.
func setupFactory(cfg config.Tree, key string, metrics *metric.MetricsRegistry, logger *slog.Logger) (*registry.Factory, error) {
	f := registry.New(registry.WithLogger(logger))
	pipeline.RegisterDefaults(f, metrics)
	module.RegisterDefaults(f)

	mmCfg, _ := cfg.Child(moduleSection)
	m, err := module.Setup(f, key, mmCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	for _, mod := range m.Modules() {
		logger.Debug("Module registered", "module", mod.Name(), "version", mod.Version())
	}
	return f, nil
}

// execute runs the pipeline next to the metrics server; the server stops
// once the pipeline is done.
func execute(ctx context.Context, runner pipeline.Runner, port int, metrics *metric.MetricsRegistry, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		code, err := runner.Exec(runCtx)
		logger.Info("Pipeline finished", "pipeline_id", runner.ID(), "exit_code", code)
		return err
	})

	if port > 0 {
		server := metric.NewServer(port, "/metrics", metrics)
		logger.Info("Serving metrics", "address", server.Address())
		g.Go(func() error {
			return server.Run(runCtx)
		})
	}

	return g.Wait()
}
