package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimi-run/jimi-core/internal/app"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
	"github.com/jimi-run/jimi-core/internal/infrastructure/logger"
	jimihttp "github.com/jimi-run/jimi-core/internal/interfaces/http"
	"github.com/jimi-run/jimi-core/internal/interfaces/websocket"
	"github.com/jimi-run/jimi-core/pkg/safego"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the gateway server (HTTP control plane + websocket bridge)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway()
		},
	}
}

func runGateway() error {
	log, err := logger.NewLogger(logger.Config{Level: "info", Format: "json", OutputPath: "stdout"})
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting jimi engine", zap.String("version", appVersion))

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

	wsHub := websocket.NewHub(log.Named("websocket"))
	safego.Go(log, "websocket-hub", func() { wsHub.Run(ctx) })
	wsBridgeStop := make(chan struct{})
	safego.Go(log, "websocket-wire-bridge", func() { wsHub.BridgeWire(a.Wire, wsBridgeStop) })
	defer close(wsBridgeStop)

	server := jimihttp.NewServer(
		jimihttp.Config{Host: cfg.Gateway.Host, Port: cfg.Gateway.Port, Mode: cfg.Gateway.Mode},
		jimihttp.Deps{Wire: a.Wire, Arbiter: a.Arbiter, Registry: a.Registry, MCP: a.MCP, WSHub: wsHub},
		log,
	)
	if err := server.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("error stopping http server", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	log.Info("jimi engine stopped")
	return nil
}
