package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tradebot/internal/app"
	"tradebot/internal/logger"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the trading loop and the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out, logFile, err := setupLogOutput(cfg.App.LogPath)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			if logFile != nil {
				defer logFile.Close()
			}
			log := logger.New(out, cfg.App.LogLevel)
			log.Info("config loaded", "path", cfg.Path(), "env", cfg.App.Env, "live", cfg.Trading.Enabled)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot, err := app.NewApp(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer func() {
				if err := bot.Close(); err != nil {
					log.Error("close failed", "error", err)
				}
			}()
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info("shutdown complete")
			return nil
		},
	}
}

// setupLogOutput tees logs into path when one is configured.
func setupLogOutput(path string) (io.Writer, *os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return os.Stdout, nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stdout, file), file, nil
}
