package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/hyperengineering/platewise/internal/config"
	"github.com/spf13/cobra"
)

// openCLIApp loads configuration and wires the diary for a one-shot
// subcommand. Logs go to stderr, at warn level unless debug or error is
// configured.
func openCLIApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Log
	if level := parseLogLevel(logCfg.Level); level != slog.LevelDebug && level < slog.LevelWarn {
		logCfg.Level = "warn"
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), logCfg))

	return newApp(context.Background(), cfg)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
