package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/app"
	"github.com/Blaze-0903/NextStepAI/internal/config"
	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstrap, cleanup, err := app.Bootstrap(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to bootstrap app", zap.Error(err))
	}
	defer func() {
		if err := cleanup(); err != nil {
			lg.Error("cleanup error", zap.Error(err))
		}
	}()

	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		lg.Fatal("invalid HTTP port", zap.Error(err))
	}

	c := bootstrap.Container
	go c.Hub.Run(ctx)

	go func() {
		if err := c.FollowReloads(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("reload subscription stopped", zap.Error(err))
		}
	}()

	if cfg.Evolution.Enabled && cfg.Evolution.Interval > 0 {
		go evolution.NewScheduler(c.Engine, cfg.Evolution.Interval, lg.Named("scheduler")).Start(ctx)
	}

	errCh := make(chan error, 2)

	wsSrv, err := bootstrap.WebsocketServer()
	if err != nil {
		lg.Fatal("invalid websocket port", zap.Error(err))
	}
	if wsSrv != nil {
		go func() {
			lg.Info("websocket server listening", zap.String("addr", wsSrv.Addr))
			if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	go func() {
		errCh <- bootstrap.Fiber.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			lg.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bootstrap.Fiber.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("shutdown error", zap.Error(err))
	}
	if wsSrv != nil {
		if err := wsSrv.Shutdown(shutdownCtx); err != nil {
			lg.Error("websocket shutdown error", zap.Error(err))
		}
	}
}
