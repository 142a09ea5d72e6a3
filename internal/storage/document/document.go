// Package document stores the whole item list as one JSON document, read
// and rewritten on every call. The bytes live in a Blob: a local file or an
// object in a bucket.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"menu-service/internal/data/models"
	"menu-service/internal/sl"
	"menu-service/internal/storage"
)

// ErrBlobNotExist is returned by Blob.Read when nothing was written yet.
var ErrBlobNotExist = errors.New("blob does not exist")

type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Storage serialises every read-modify-write cycle through one mutex, so
// concurrent requests in this process cannot lose each other's updates.
type Storage struct {
	log  *slog.Logger
	blob Blob
	mu   sync.Mutex
	// lastID is the highest id handed out or seen by this process.
	lastID int64
}

func New(log *slog.Logger, blob Blob) *Storage {
	return &Storage{log: log, blob: blob}
}

func (s *Storage) ListItems(ctx context.Context) ([]models.Item, error) {
	const op = "storage.document.ListItems"

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	return items, nil
}

func (s *Storage) AddItem(ctx context.Context, fields models.ItemFields) (models.Item, error) {
	const op = "storage.document.AddItem"

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	s.lastID++
	it := fields.Item(s.lastID)
	items = append(items, it)

	if err := s.save(ctx, items); err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

func (s *Storage) UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error {
	const op = "storage.document.UpdateItem"

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	i := indexOf(items, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}
	if patch.Empty() {
		return nil
	}
	patch.Apply(&items[i])

	if err := s.save(ctx, items); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteItem(ctx context.Context, id int64) error {
	const op = "storage.document.DeleteItem"

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	i := indexOf(items, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}
	items = append(items[:i], items[i+1:]...)

	if err := s.save(ctx, items); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// snapshot is the persisted shape. NextID survives deletes so ids are never
// handed out twice, even across restarts.
type snapshot struct {
	NextID int64         `json:"next_id"`
	Items  []models.Item `json:"items"`
}

// record is one stored entry as older writers may have left it: no id and
// a price that is whatever text the form carried.
type record struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

// load reads the blob. A missing blob is an empty list; so is one that is not
// JSON at all, which the next write then replaces. Both the current object
// and a bare array of entries are read. Entries are decoded one by one: an
// unreadable price becomes zero and an entry that is not an object is
// skipped, each with a warning, so the rest of the list survives. Entries
// without an id get one here and are written back at once so the ids stay
// put.
func (s *Storage) load(ctx context.Context) ([]models.Item, error) {
	data, err := s.blob.Read(ctx)
	if errors.Is(err, ErrBlobNotExist) {
		return []models.Item{}, nil
	}
	if err != nil {
		return nil, err
	}

	raw, nextID, err := decode(data)
	if err != nil {
		s.log.Warn("items document is malformed, treating as empty", sl.Err(err))
		return []models.Item{}, nil
	}
	if nextID-1 > s.lastID {
		s.lastID = nextID - 1
	}

	items := make([]models.Item, 0, len(raw))
	for i, entry := range raw {
		var rec record
		if err := json.Unmarshal(entry, &rec); err != nil {
			s.log.Warn("skipping unreadable item entry", slog.Int("index", i), sl.Err(err))
			continue
		}

		it := models.Item{
			ID:          rec.ID,
			Name:        rec.Name,
			Category:    rec.Category,
			Description: rec.Description,
			Image:       rec.Image,
		}
		if len(rec.Price) > 0 {
			if err := it.Price.UnmarshalJSON(rec.Price); err != nil {
				s.log.Warn("item price is not a number, using zero",
					slog.String("name", rec.Name),
					slog.String("price", string(rec.Price)),
				)
				it.Price = decimal.Zero
			}
		}
		items = append(items, it)
	}

	for _, it := range items {
		if it.ID > s.lastID {
			s.lastID = it.ID
		}
	}
	assigned := false
	for i := range items {
		if items[i].ID == 0 {
			s.lastID++
			items[i].ID = s.lastID
			assigned = true
		}
	}
	if assigned {
		if err := s.save(ctx, items); err != nil {
			return nil, err
		}
	}

	return items, nil
}

func decode(data []byte) ([]json.RawMessage, int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, 0, err
		}
		return raw, 0, nil
	}

	var doc struct {
		NextID int64             `json:"next_id"`
		Items  []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, err
	}

	return doc.Items, doc.NextID, nil
}

func (s *Storage) save(ctx context.Context, items []models.Item) error {
	data, err := json.MarshalIndent(snapshot{NextID: s.lastID + 1, Items: items}, "", "  ")
	if err != nil {
		return err
	}

	return s.blob.Write(ctx, data)
}

func indexOf(items []models.Item, id int64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}

	return -1
}
