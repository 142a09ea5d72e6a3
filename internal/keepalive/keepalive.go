package keepalive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"menu-service/internal/sl"
)

// Pinger requests url on every tick. Failures are only logged.
type Pinger struct {
	log      *slog.Logger
	client   *http.Client
	url      string
	interval time.Duration
}

func New(log *slog.Logger, url string, interval time.Duration) *Pinger {
	return &Pinger{
		log:      log,
		client:   &http.Client{Timeout: 30 * time.Second},
		url:      url,
		interval: interval,
	}
}

// Run pings until ctx is done.
func (p *Pinger) Run(ctx context.Context) {
	const op = "keepalive.Run"

	log := p.log.With(slog.String("op", op), slog.String("url", p.url))
	log.Info("keepalive started", slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("keepalive stopped")
			return
		case <-ticker.C:
			if err := p.Ping(ctx); err != nil {
				log.Warn("keepalive ping failed", sl.Err(err))
				continue
			}
			log.Debug("keepalive ping ok")
		}
	}
}

func (p *Pinger) Ping(ctx context.Context) error {
	const op = "keepalive.Ping"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	return nil
}
