package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"

	"menu-service/config"
	"menu-service/internal/data/models"
	"menu-service/internal/sl"
)

func noS3(t *testing.T) func() (*s3.Client, error) {
	return func() (*s3.Client, error) {
		t.Error("s3 client requested")
		return nil, errors.New("no s3 in tests")
	}
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		cfg     func(dir string) config.StorageConfig
		wantErr bool
	}{
		"memory": {
			cfg: func(string) config.StorageConfig { return config.StorageConfig{Driver: DriverMemory} },
		},
		"jsonfile": {
			cfg: func(dir string) config.StorageConfig {
				return config.StorageConfig{Driver: DriverJSONFile, Path: filepath.Join(dir, "items.json")}
			},
		},
		"sqlite": {
			cfg: func(dir string) config.StorageConfig {
				return config.StorageConfig{Driver: DriverSQLite, Path: filepath.Join(dir, "db", "items.db")}
			},
		},
		"bucket without name": {
			cfg:     func(string) config.StorageConfig { return config.StorageConfig{Driver: DriverBucket} },
			wantErr: true,
		},
		"unknown driver": {
			cfg:     func(string) config.StorageConfig { return config.StorageConfig{Driver: "redis"} },
			wantErr: true,
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store, closeStore, err := newStore(ctx, sl.NewDiscardLogger(), tt.cfg(t.TempDir()), noS3(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			defer closeStore(ctx)

			added, err := store.AddItem(ctx, models.ItemFields{Name: "Pie", Price: decimal.NewFromInt(3), Category: "Food"})
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			items, err := store.ListItems(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(items) != 1 || items[0].ID != added.ID {
				t.Fatalf("unexpected items: %+v", items)
			}
		})
	}
}

func TestNewSinkUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, _, err := newSink(config.ImagesConfig{Driver: "ftp"}, config.AWSConfig{}, noS3(t)); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &config.Config{
		Env:     "local",
		HTTP:    config.HTTPConfig{Port: 0, StorageTimeout: time.Second},
		Admin:   config.AdminConfig{Username: "admin", Password: "password123"},
		Session: config.SessionConfig{Secret: "s", TTL: time.Hour, Cookie: "sid"},
		Storage: config.StorageConfig{Driver: DriverMemory},
		Images:  config.ImagesConfig{Driver: "local", Dir: filepath.Join(dir, "images"), URLPrefix: "/images"},
	}

	a, err := build(context.Background(), sl.NewDiscardLogger(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer a.Close(context.Background())

	if a.GRPCServer != nil {
		t.Fatal("grpc server built while disabled")
	}
	if a.keepalive != nil {
		t.Fatal("keepalive built without url")
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected health status: %d", rec.Code)
	}
}
