package storage

import (
	"context"
	"errors"

	"menu-service/internal/data/models"
)

//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=mock_$GOFILE

var (
	ErrItemNotFound = errors.New("item not found")
)

// Store is the contract every item backend implements. ListItems returns
// items newest first.
type Store interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	AddItem(ctx context.Context, fields models.ItemFields) (models.Item, error)
	UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error
	DeleteItem(ctx context.Context, id int64) error
}
