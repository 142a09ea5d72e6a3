package catalogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"menu-service/internal/data/models"
	"menu-service/internal/images"
	"menu-service/internal/sl"
	"menu-service/internal/storage"
)

const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Notifier is told about every successful mutation.
type Notifier interface {
	ItemsChanged(action string, id int64)
}

type Catalogue struct {
	log          *slog.Logger
	store        storage.Store
	images       images.Sink
	notifier     Notifier
	storeTimeout time.Duration
}

type Option func(*Catalogue)

// WithStoreTimeout bounds every single store call. Image uploads only follow
// the caller's context.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Catalogue) {
		c.storeTimeout = d
	}
}

// New returns a catalogue over store and sink. notifier may be nil.
func New(log *slog.Logger, store storage.Store, sink images.Sink, notifier Notifier, opts ...Option) *Catalogue {
	c := &Catalogue{
		log:      log,
		store:    store,
		images:   sink,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListItems never fails: a store error is logged and an empty list returned.
func (c *Catalogue) ListItems(ctx context.Context) []models.Item {
	const op = "catalogue.ListItems"

	ctx, cancel := c.storeContext(ctx)
	defer cancel()

	items, err := c.store.ListItems(ctx)
	if err != nil {
		c.log.Error("failed to list items", slog.String("op", op), sl.Err(err))
		return []models.Item{}
	}
	if items == nil {
		return []models.Item{}
	}

	return items
}

// Items is ListItems for callers that want to see the failure.
func (c *Catalogue) Items(ctx context.Context) ([]models.Item, error) {
	const op = "catalogue.Items"

	ctx, cancel := c.storeContext(ctx)
	defer cancel()

	items, err := c.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (c *Catalogue) Item(ctx context.Context, id int64) (models.Item, error) {
	const op = "catalogue.Item"

	ctx, cancel := c.storeContext(ctx)
	defer cancel()

	items, err := c.store.ListItems(ctx)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}

	return models.Item{}, fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
}

// AddItem stores the upload first, when there is one, and records its
// reference as the item image.
func (c *Catalogue) AddItem(ctx context.Context, fields models.ItemFields, upload *images.Upload) (models.Item, error) {
	const op = "catalogue.AddItem"

	log := c.log.With(slog.String("op", op))

	if upload != nil {
		ref, err := c.images.Save(ctx, *upload)
		if err != nil {
			log.Error("failed to save image", sl.Err(err))
			return models.Item{}, fmt.Errorf("%s: %w", op, err)
		}
		fields.Image = ref
	}

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	it, err := c.store.AddItem(storeCtx, fields)
	if err != nil {
		log.Error("failed to add item", sl.Err(err))
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("item added", slog.Int64("id", it.ID), slog.String("name", it.Name))
	c.notify(ActionAdd, it.ID)

	return it, nil
}

// UpdateItem applies patch to item id. A new upload replaces the image;
// without one the stored image is kept whatever patch.Image says.
func (c *Catalogue) UpdateItem(ctx context.Context, id int64, patch models.ItemPatch, upload *images.Upload) error {
	const op = "catalogue.UpdateItem"

	log := c.log.With(slog.String("op", op), slog.Int64("id", id))

	patch.Image = nil
	if upload != nil {
		ref, err := c.images.Save(ctx, *upload)
		if err != nil {
			log.Error("failed to save image", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		patch.Image = &ref
	}

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	if err := c.store.UpdateItem(storeCtx, id, patch); err != nil {
		log.Warn("failed to update item", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("item updated")
	c.notify(ActionEdit, id)

	return nil
}

func (c *Catalogue) DeleteItem(ctx context.Context, id int64) error {
	const op = "catalogue.DeleteItem"

	log := c.log.With(slog.String("op", op), slog.Int64("id", id))

	storeCtx, cancel := c.storeContext(ctx)
	defer cancel()

	if err := c.store.DeleteItem(storeCtx, id); err != nil {
		log.Warn("failed to delete item", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("item deleted")
	c.notify(ActionDelete, id)

	return nil
}

func (c *Catalogue) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.storeTimeout)
}

func (c *Catalogue) notify(action string, id int64) {
	if c.notifier != nil {
		c.notifier.ItemsChanged(action, id)
	}
}
