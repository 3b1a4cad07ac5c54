package main

import (
	"context"
	"os"
	"time"

	"github.com/jimi-run/jimi-core/internal/app"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
	"github.com/jimi-run/jimi-core/internal/infrastructure/logger"
	"github.com/jimi-run/jimi-core/internal/interfaces/repl"
	"github.com/spf13/cobra"
)

func newREPLCommand() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive REPL session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(model)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "override the default model for this session")
	return cmd
}

func runREPL(modelOverride string) error {
	log, err := logger.NewLogger(logger.Config{Level: "warn", Format: "console", OutputPath: "stdout"})
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := config.Bootstrap(log); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	defaultModel := cfg.Agent.DefaultModel
	if modelOverride != "" {
		defaultModel = modelOverride
	}

	r := repl.New(a, log, repl.Config{DefaultModel: defaultModel, UserName: os.Getenv("USER")})
	if err := r.Run(ctx); err != nil {
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return a.Close(shutdownCtx)
}
