package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"menu-service/internal/data/models"
	"menu-service/internal/storage"
	"menu-service/internal/storage/storagetest"
)

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	it := models.Item{
		ID:          3,
		Name:        "Latte",
		Price:       decimal.RequireFromString("3.75"),
		Category:    "Drinks",
		Description: "oat milk",
		Image:       "https://cdn.example.com/items/latte.png",
	}

	doc, err := newItemDocument(it)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, err := doc.item()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	storagetest.AssertItem(t, it, got)
}

func TestPatchDocument(t *testing.T) {
	t.Parallel()

	name := "Flat white"
	price := decimal.RequireFromString("4.10")

	cases := map[string]struct {
		patch    models.ItemPatch
		wantKeys []string
	}{
		"empty": {
			patch:    models.ItemPatch{},
			wantKeys: nil,
		},
		"name and price leave image alone": {
			patch:    models.ItemPatch{Name: &name, Price: &price},
			wantKeys: []string{"name", "price"},
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			set, err := patchDocument(tt.patch)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(set) != len(tt.wantKeys) {
				t.Fatalf("unexpected keys: want: %v, got: %v", tt.wantKeys, set)
			}
			for i, key := range tt.wantKeys {
				if set[i].Key != key {
					t.Fatalf("unexpected key %d: want: %s, got: %s", i, key, set[i].Key)
				}
			}
		})
	}
}

// Runs only when TEST_MONGO_URI points at a reachable server.
func TestContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db := "menu_test_" + uuid.NewString()[:8]
		s, err := New(ctx, uri, db)
		if err != nil {
			t.Fatalf("failed to connect: %s", err)
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.client.Database(db).Drop(ctx)
			_ = s.Close(ctx)
		})

		return s
	})
}
