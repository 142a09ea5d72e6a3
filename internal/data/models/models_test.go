package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemPatchApply(t *testing.T) {
	t.Parallel()

	base := Item{
		ID:          7,
		Name:        "Burger",
		Price:       decimal.RequireFromString("9.99"),
		Category:    "Food",
		Description: "beef",
		Image:       "/images/burger.png",
	}

	name := "Cheeseburger"
	price := decimal.RequireFromString("10.50")
	empty := ""

	cases := map[string]struct {
		patch ItemPatch
		want  Item
	}{
		"empty patch keeps everything": {
			patch: ItemPatch{},
			want:  base,
		},
		"name and price only, image preserved": {
			patch: ItemPatch{Name: &name, Price: &price},
			want: Item{
				ID:          7,
				Name:        "Cheeseburger",
				Price:       price,
				Category:    "Food",
				Description: "beef",
				Image:       "/images/burger.png",
			},
		},
		"explicit empty description clears it": {
			patch: ItemPatch{Description: &empty},
			want: Item{
				ID:       7,
				Name:     "Burger",
				Price:    base.Price,
				Category: "Food",
				Image:    "/images/burger.png",
			},
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := base
			tt.patch.Apply(&got)

			if !got.Price.Equal(tt.want.Price) {
				t.Fatalf("unexpected price: want: %s, got: %s", tt.want.Price, got.Price)
			}
			got.Price, tt.want.Price = decimal.Zero, decimal.Zero
			if got != tt.want {
				t.Fatalf("unexpected item: want: %+v, got: %+v", tt.want, got)
			}
		})
	}
}

func TestItemPatchEmpty(t *testing.T) {
	t.Parallel()

	if !(ItemPatch{}).Empty() {
		t.Fatal("zero patch must be empty")
	}
	img := ""
	if (ItemPatch{Image: &img}).Empty() {
		t.Fatal("patch with image must not be empty")
	}
}
