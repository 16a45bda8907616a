package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	Pipeline    string
	Module      string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("FLOWPIPE_CONFIG", ""),
		"Path to configuration file, .json, .yaml or .hcl (env: FLOWPIPE_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("FLOWPIPE_CONFIG", ""),
		"Path to configuration file (env: FLOWPIPE_CONFIG)")

	fs.StringVar(&cfg.Pipeline, "pipeline",
		getEnv("FLOWPIPE_PIPELINE", "Pipeline"),
		"Configuration section holding the pipeline (env: FLOWPIPE_PIPELINE)")

	fs.StringVar(&cfg.Module, "module",
		getEnv("FLOWPIPE_MODULE", "Default"),
		"Module manager to load element modules with (env: FLOWPIPE_MODULE)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FLOWPIPE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: FLOWPIPE_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FLOWPIPE_LOG_FORMAT", "text"),
		"Log format: json, text (env: FLOWPIPE_LOG_FORMAT)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("FLOWPIPE_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: FLOWPIPE_METRICS_PORT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate",
		getEnvBool("FLOWPIPE_VALIDATE", false),
		"Assemble the pipeline and exit without running it (env: FLOWPIPE_VALIDATE)")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath == "" {
		return fmt.Errorf("no config file given")
	}
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}
	if cfg.Pipeline == "" {
		return fmt.Errorf("empty pipeline section name")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	out := fs.Output()
	_, _ = fmt.Fprintf(out, `%s - configurable dataflow pipelines

Usage: %s --config <file> [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(out, `
Examples:
  # Run the Pipeline section of a YAML file
  %s --config=configs/example.yaml

  # Run another section with debug logging
  %s --config=configs/example.yaml --pipeline=Fanout --log-level=debug

  # Serve Prometheus metrics while running
  FLOWPIPE_METRICS_PORT=9090 %s --config=configs/example.yaml

  # Assemble only
  %s --config=configs/example.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
