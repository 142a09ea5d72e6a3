package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"menu-service/config"
	"menu-service/internal/app"
	"menu-service/internal/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	log := setupLogger(cfg.Env)
	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("starting menu service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("images", cfg.Images.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := app.New(ctx, log, cfg)
	application.RunBackground(ctx)

	go func() {
		application.HTTPServer.MustRun()
	}()

	if application.GRPCServer != nil {
		go func() {
			application.GRPCServer.MustRun()
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	sign := <-stop
	log.Info("stopping menu service", slog.String("signal", sign.String()))

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if application.GRPCServer != nil {
		application.GRPCServer.Stop()
	}
	if err := application.HTTPServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}
	application.Close(shutdownCtx)

	log.Info("menu service gracefully stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := sl.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
