// Package sql is the relational item store: a local sqlite file or a managed
// postgres database, both through gorm.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"menu-service/internal/data/models"
	"menu-service/internal/storage"
)

type Storage struct {
	db *gorm.DB
}

// NewSQLite opens (creating if needed) the sqlite file at path and migrates
// the items table.
func NewSQLite(path string) (*Storage, error) {
	const op = "storage.sql.NewSQLite"

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s, err := newStorage(db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// NewPostgres connects through a lib/pq pool and migrates the items table.
func NewPostgres(dsn string) (*Storage, error) {
	const op = "storage.sql.NewPostgres"

	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), gormConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s, err := newStorage(db)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&models.Item{}); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func (s *Storage) ListItems(ctx context.Context) ([]models.Item, error) {
	const op = "storage.sql.ListItems"

	items := []models.Item{}
	if err := s.db.WithContext(ctx).Order("id desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Storage) AddItem(ctx context.Context, fields models.ItemFields) (models.Item, error) {
	const op = "storage.sql.AddItem"

	it := fields.Item(0)
	if err := s.db.WithContext(ctx).Create(&it).Error; err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

// UpdateItem reads the row and writes it back merged with patch inside one
// transaction, so omitted fields keep their stored values.
func (s *Storage) UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error {
	const op = "storage.sql.UpdateItem"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.First(&it, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrItemNotFound
			}
			return err
		}

		if patch.Empty() {
			return nil
		}
		patch.Apply(&it)

		return tx.Save(&it).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteItem(ctx context.Context, id int64) error {
	const op = "storage.sql.DeleteItem"

	res := s.db.WithContext(ctx).Delete(&models.Item{}, id)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	return nil
}

func (s *Storage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
