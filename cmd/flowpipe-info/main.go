// Package main implements flowpipe-info, which lists the elements registered
// by the loaded modules together with their signatures and descriptions.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/c360/flowpipe/elements/basic"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/module"
	"github.com/c360/flowpipe/pipeline"
	"github.com/c360/flowpipe/registry"
	"github.com/c360/flowpipe/view"
)

const appName = "flowpipe-info"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("FLOWPIPE_CONFIG"), "Configuration file whose ModuleManager section selects modules (env: FLOWPIPE_CONFIG)")
	managerKey := fs.String("module", "Default", "Module manager")
	elementKey := fs.String("element", "", "Show only this element")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var mmCfg config.Tree
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		mmCfg, _ = cfg.Child("ModuleManager")
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	f := registry.New(registry.WithLogger(logger))
	pipeline.RegisterDefaults(f, nil)
	module.RegisterDefaults(f)
	m, err := module.Setup(f, *managerKey, mmCfg, logger)
	if err != nil {
		return fmt.Errorf("load modules: %w", err)
	}

	if *elementKey != "" {
		if !registry.Has[pipeline.NodeConstructor](f, *elementKey) {
			return errors.WrapInvalid(fmt.Errorf("%w: element %q", errors.ErrNotRegistered, *elementKey),
				"main", "run", "lookup element")
		}
		printElement(stdout, f, *elementKey)
		return nil
	}

	names := make([]string, 0, len(m.Modules()))
	for _, mod := range m.Modules() {
		names = append(names, fmt.Sprintf("%s (v%d)", mod.Name(), mod.Version()))
	}
	_, _ = fmt.Fprintf(stdout, "Modules: %s\n\n", strings.Join(names, ", "))

	_, _ = fmt.Fprintln(stdout, "Elements:")
	for _, key := range registry.Keys[pipeline.NodeConstructor](f) {
		printElement(stdout, f, key)
	}

	_, _ = fmt.Fprintln(stdout, "\nNode kinds:")
	for _, key := range registry.Keys[pipeline.ServiceConstructor](f) {
		_, _ = fmt.Fprintf(stdout, "  %s\n", key)
	}
	for _, key := range registry.Keys[pipeline.FunctionalConstructor](f) {
		_, _ = fmt.Fprintf(stdout, "  %s\n", key)
	}

	_, _ = fmt.Fprintln(stdout, "\nViews:")
	for _, key := range registry.Keys[view.Constructor](f) {
		_, _ = fmt.Fprintf(stdout, "  %s\n", key)
	}
	return nil
}

func printElement(w io.Writer, f *registry.Factory, key string) {
	line := "  " + key
	if sig, ok := registry.Lookup[element.Signature](f, key); ok {
		line += " " + sig.String()
	}
	_, _ = fmt.Fprintln(w, line)
	if desc, ok := registry.Lookup[pipeline.Description](f, key); ok {
		for _, d := range desc {
			_, _ = fmt.Fprintf(w, "      %s\n", d)
		}
	}
}
