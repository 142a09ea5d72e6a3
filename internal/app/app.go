package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"menu-service/config"
	grpcapp "menu-service/internal/app/grpc"
	httpapp "menu-service/internal/app/http"
	"menu-service/internal/catalogue"
	"menu-service/internal/http/admin"
	"menu-service/internal/images"
	"menu-service/internal/keepalive"
	"menu-service/internal/realtime"
	"menu-service/internal/session"
	"menu-service/internal/sl"
)

const sweepInterval = 10 * time.Minute

type App struct {
	HTTPServer *httpapp.App
	// GRPCServer is nil unless grpc.enabled is set.
	GRPCServer *grpcapp.App

	log        *slog.Logger
	sessions   *session.Gate
	hub        *realtime.Hub
	keepalive  *keepalive.Pinger
	closeStore closeFunc
}

// New wires the configured store, image sink and servers. It panics when a
// backend cannot be opened.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	a, err := build(ctx, log, cfg)
	if err != nil {
		panic(err)
	}

	return a
}

func build(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	s3Client := lazyS3Client(ctx, cfg.AWS)

	store, closeStore, err := newStore(ctx, log, cfg.Storage, s3Client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("item store ready", slog.String("driver", cfg.Storage.Driver))

	sink, servedImages, err := newSink(cfg.Images, cfg.AWS, s3Client)
	if err != nil {
		_ = closeStore(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("image sink ready", slog.String("driver", cfg.Images.Driver))

	gate := session.New(session.Credentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	}, cfg.Session.Secret, cfg.Session.TTL)

	hub := realtime.NewHub(log)
	cat := catalogue.New(log, store, sink, hub, catalogue.WithStoreTimeout(cfg.HTTP.StorageTimeout))

	router := admin.NewRouter(log, cat, gate, admin.Options{
		Cookie:       cfg.Session.Cookie,
		SecureCookie: cfg.Session.Secure,
		SessionTTL:   gate.TTL(),
		MaxUpload:    cfg.HTTP.MaxUpload,
		Images:       servedImages,
		ImagesPrefix: cfg.Images.URLPrefix,
		Realtime:     hub,
	})

	a := &App{
		HTTPServer: httpapp.New(log, router, cfg.HTTP),
		log:        log,
		sessions:   gate,
		hub:        hub,
		closeStore: closeStore,
	}

	if cfg.GRPC.Enabled {
		a.GRPCServer = grpcapp.New(log, cat, gate, cfg.GRPC.Port)
	}
	if cfg.Keepalive.URL != "" {
		a.keepalive = keepalive.New(log, cfg.Keepalive.URL, cfg.Keepalive.Interval)
	}

	return a, nil
}

// RunBackground starts the session sweeper and, when configured, the
// keepalive pinger. Both stop with ctx.
func (a *App) RunBackground(ctx context.Context) {
	go a.sweepSessions(ctx)

	if a.keepalive != nil {
		go a.keepalive.Run(ctx)
	}
}

func (a *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				a.log.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// Close disconnects realtime subscribers and releases the item store.
func (a *App) Close(ctx context.Context) {
	const op = "app.Close"

	a.hub.Close()
	if err := a.closeStore(ctx); err != nil {
		a.log.Error("failed to close item store", slog.String("op", op), sl.Err(err))
	}
}

// newSink returns the image sink and, for the local driver, the directory
// that should be served to browsers.
func newSink(cfg config.ImagesConfig, awsCfg config.AWSConfig, s3Client func() (*s3.Client, error)) (images.Sink, afero.Fs, error) {
	const op = "app.newSink"

	switch cfg.Driver {
	case "local":
		osFs := afero.NewOsFs()
		if err := osFs.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		dir := afero.NewBasePathFs(osFs, cfg.Dir)
		return images.NewLocalSink(dir, cfg.URLPrefix), dir, nil

	case "s3":
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("%s: s3 driver needs images.bucket", op)
		}
		client, err := s3Client()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return images.NewS3Sink(client, afero.NewOsFs(), cfg.Bucket, cfg.Prefix, cfg.PublicURL, awsCfg.Region), nil, nil
	}

	return nil, nil, fmt.Errorf("%s: unknown images driver %q", op, cfg.Driver)
}

// lazyS3Client loads AWS credentials on first use so deployments without
// any S3 backend never touch them.
func lazyS3Client(ctx context.Context, cfg config.AWSConfig) func() (*s3.Client, error) {
	var (
		once   sync.Once
		client *s3.Client
		err    error
	)

	return func() (*s3.Client, error) {
		once.Do(func() {
			const op = "app.s3Client"

			awsCfg, loadErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
			if loadErr != nil {
				err = fmt.Errorf("%s: %w", op, loadErr)
				return
			}

			client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
				if cfg.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
					o.UsePathStyle = true
				}
			})
		})

		return client, err
	}
}
