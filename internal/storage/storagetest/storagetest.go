// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"menu-service/internal/data/models"
	"menu-service/internal/storage"
)

// Run exercises the store contract against fresh stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("empty store lists nothing", func(t *testing.T) {
		s := newStore(t)

		items, err := s.ListItems(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(items) != 0 {
			t.Fatalf("unexpected items: %+v", items)
		}
	})

	t.Run("add then list round-trips fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		fields := models.ItemFields{
			Name:        "Burger",
			Price:       decimal.RequireFromString("9.99"),
			Category:    "Food",
			Description: "beef patty",
			Image:       "/images/1_burger.png",
		}
		created, err := s.AddItem(ctx, fields)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if created.ID == 0 {
			t.Fatal("store must assign an id")
		}

		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(items) != 1 {
			t.Fatalf("unexpected count: want: 1, got: %d", len(items))
		}
		AssertItem(t, fields.Item(created.ID), items[0])
	})

	t.Run("ids are distinct and newest comes first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := mustAdd(t, s, "Tea")
		second := mustAdd(t, s, "Coffee")
		if first.ID == second.ID {
			t.Fatalf("duplicate id %d", first.ID)
		}

		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
			t.Fatalf("unexpected order: %+v", items)
		}
	})

	t.Run("update without image keeps image", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created := mustAdd(t, s, "Soup")
		name := "Tomato soup"
		price := decimal.RequireFromString("4.50")
		if err := s.UpdateItem(ctx, created.ID, models.ItemPatch{Name: &name, Price: &price}); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		got := mustGet(t, s, created.ID)
		want := created
		want.Name = name
		want.Price = price
		AssertItem(t, want, got)
	})

	t.Run("update with image replaces image", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created := mustAdd(t, s, "Cake")
		img := "/images/2_cake.png"
		if err := s.UpdateItem(ctx, created.ID, models.ItemPatch{Image: &img}); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if got := mustGet(t, s, created.ID); got.Image != img {
			t.Fatalf("unexpected image: want: %s, got: %s", img, got.Image)
		}
	})

	t.Run("update unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		name := "ghost"

		err := s.UpdateItem(context.Background(), 4242, models.ItemPatch{Name: &name})
		if !errors.Is(err, storage.ErrItemNotFound) {
			t.Fatalf("unexpected error: want: %v, got: %v", storage.ErrItemNotFound, err)
		}
	})

	t.Run("empty patch changes nothing but still needs the item", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		added, err := s.AddItem(ctx, models.ItemFields{Name: "Tea", Price: decimal.RequireFromString("2.5"), Category: "Drinks"})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := s.UpdateItem(ctx, added.ID, models.ItemPatch{}); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(items) != 1 {
			t.Fatalf("unexpected items: %+v", items)
		}
		AssertItem(t, added, items[0])

		if err := s.UpdateItem(ctx, added.ID+100, models.ItemPatch{}); !errors.Is(err, storage.ErrItemNotFound) {
			t.Fatalf("unexpected error: want: %v, got: %v", storage.ErrItemNotFound, err)
		}
	})

	t.Run("delete removes and second delete is not found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		keep := mustAdd(t, s, "Bread")
		drop := mustAdd(t, s, "Milk")

		if err := s.DeleteItem(ctx, drop.ID); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(items) != 1 || items[0].ID != keep.ID {
			t.Fatalf("unexpected items after delete: %+v", items)
		}

		err = s.DeleteItem(ctx, drop.ID)
		if !errors.Is(err, storage.ErrItemNotFound) {
			t.Fatalf("unexpected error: want: %v, got: %v", storage.ErrItemNotFound, err)
		}
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		mustAdd(t, s, "A")
		last := mustAdd(t, s, "B")
		if err := s.DeleteItem(ctx, last.ID); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		next := mustAdd(t, s, "C")
		if next.ID <= last.ID {
			t.Fatalf("id reused: deleted %d, got %d", last.ID, next.ID)
		}
	})
}

// AssertItem compares items field by field, prices by value.
func AssertItem(t *testing.T, want, got models.Item) {
	t.Helper()

	if !want.Price.Equal(got.Price) {
		t.Fatalf("unexpected price: want: %s, got: %s", want.Price, got.Price)
	}
	want.Price, got.Price = decimal.Zero, decimal.Zero
	if want != got {
		t.Fatalf("unexpected item: want: %+v, got: %+v", want, got)
	}
}

func mustAdd(t *testing.T, s storage.Store, name string) models.Item {
	t.Helper()

	it, err := s.AddItem(context.Background(), models.ItemFields{
		Name:     name,
		Price:    decimal.RequireFromString("1.25"),
		Category: "Misc",
		Image:    "/images/" + name + ".png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	return it
}

func mustGet(t *testing.T, s storage.Store, id int64) models.Item {
	t.Helper()

	items, err := s.ListItems(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %d not listed", id)

	return models.Item{}
}
