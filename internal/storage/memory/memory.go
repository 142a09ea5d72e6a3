package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"menu-service/internal/data/models"
	"menu-service/internal/storage"
)

// Storage keeps items in a map keyed by generated id. Nothing survives a
// restart.
type Storage struct {
	mu     sync.RWMutex
	items  map[int64]models.Item
	nextID int64
}

func New() *Storage {
	return &Storage{
		items:  make(map[int64]models.Item),
		nextID: 1,
	}
}

func (s *Storage) ListItems(_ context.Context) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Item, 0, len(s.items))
	for _, it := range s.items {
		res = append(res, it)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })

	return res, nil
}

func (s *Storage) AddItem(_ context.Context, fields models.ItemFields) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := fields.Item(s.nextID)
	s.nextID++
	s.items[it.ID] = it

	return it, nil
}

func (s *Storage) UpdateItem(_ context.Context, id int64, patch models.ItemPatch) error {
	const op = "storage.memory.UpdateItem"

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}
	patch.Apply(&it)
	s.items[id] = it

	return nil
}

func (s *Storage) DeleteItem(_ context.Context, id int64) error {
	const op = "storage.memory.DeleteItem"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}
	delete(s.items, id)

	return nil
}
