package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"

	"menu-service/config"
	"menu-service/internal/storage"
	"menu-service/internal/storage/document"
	"menu-service/internal/storage/memory"
	"menu-service/internal/storage/mongo"
	storagesql "menu-service/internal/storage/sql"
)

const (
	DriverMemory   = "memory"
	DriverJSONFile = "jsonfile"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverBucket   = "bucket"
)

type closeFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// newStore opens the item store selected by cfg.Driver. s3Client is only
// called for the bucket driver.
func newStore(
	ctx context.Context,
	log *slog.Logger,
	cfg config.StorageConfig,
	s3Client func() (*s3.Client, error),
) (storage.Store, closeFunc, error) {
	const op = "app.newStore"

	switch cfg.Driver {
	case DriverMemory:
		return memory.New(), noopClose, nil

	case DriverJSONFile:
		return document.New(log, document.NewFileBlob(afero.NewOsFs(), cfg.Path)), noopClose, nil

	case DriverSQLite:
		s, err := storagesql.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, func(context.Context) error { return s.Close() }, nil

	case DriverPostgres:
		s, err := storagesql.NewPostgres(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, func(context.Context) error { return s.Close() }, nil

	case DriverMongo:
		s, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, s.Close, nil

	case DriverBucket:
		if cfg.Bucket.Name == "" {
			return nil, nil, fmt.Errorf("%s: bucket driver needs storage.bucket.name", op)
		}
		client, err := s3Client()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return document.New(log, document.NewBucketBlob(client, cfg.Bucket.Name, cfg.Bucket.Key)), noopClose, nil
	}

	return nil, nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
}
