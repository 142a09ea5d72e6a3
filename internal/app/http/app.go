package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"menu-service/config"
)

type App struct {
	log    *slog.Logger
	server *http.Server
	port   int
}

func New(log *slog.Logger, handler http.Handler, cfg config.HTTPConfig) *App {
	return &App{
		log: log,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		port: cfg.Port,
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// MustRun runs HTTP server and panics if any error occurs.
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run runs HTTP server until Stop is called.
func (a *App) Run() error {
	const op = "httpapp.Run"

	l, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("http server started", slog.String("addr", l.Addr().String()))

	if err := a.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop waits for in-flight requests until ctx is done.
func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping http server", slog.Int("port", a.port))

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
