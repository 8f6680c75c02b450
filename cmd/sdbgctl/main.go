// Command sdbgctl is an interactive front-end for the debug control
// core: it loads a project configuration, wires a Controller, and drives
// it from a readline REPL. The actual wire-protocol library that talks
// to a target runtime is out of scope for this module (see wire.Connector);
// this command defaults to the in-memory fake connector from wire/fake so
// the REPL is runnable standalone, and accepts a real one wherever this
// package is vendored into a host that supplies it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scala-ide/sdbg/config"
)

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "sdbgctl",
		Short: "Interactive front-end for the debug control core",
		RunE:  runREPL,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sdbg.json", "path to the project configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zap log level: debug, info, warn, error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "" // REPL output stays terse; timestamps clutter it
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Sugar(), nil
}

func loadConfig(path string) (config.Snapshot, error) {
	snap, err := config.Load(path)
	if err != nil {
		return config.Snapshot{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return snap, nil
}
