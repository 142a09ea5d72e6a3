package document_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"menu-service/internal/data/models"
	"menu-service/internal/sl"
	"menu-service/internal/storage"
	"menu-service/internal/storage/document"
	"menu-service/internal/storage/storagetest"
)

const itemsPath = "public/items.json"

func TestFileContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return document.New(sl.NewDiscardLogger(), document.NewFileBlob(afero.NewMemMapFs(), itemsPath))
	})
}

func TestBucketContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return document.New(sl.NewDiscardLogger(), document.NewBucketBlob(newFakeBucket(), "menu", "items.json"))
	})
}

func TestFileTolerance(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		content   string
		wantNames []string
	}{
		"malformed json is empty": {
			content:   `{not json`,
			wantNames: []string{},
		},
		"empty file is empty": {
			content:   ``,
			wantNames: []string{},
		},
		"legacy array without ids": {
			content:   `[{"name":"Tea","price":"2.5","category":"Drinks","image":""},{"name":"Pie","price":3,"category":"Food","image":"/images/1_pie.png"}]`,
			wantNames: []string{"Pie", "Tea"},
		},
		"legacy prices that are not numbers": {
			content:   `[{"name":"Tea","price":"2.5","category":"Drinks"},{"name":"Soup","price":"","category":"Food"},{"name":"Cake","price":"$4","category":"Food"}]`,
			wantNames: []string{"Cake", "Soup", "Tea"},
		},
		"entry that is not an object is skipped": {
			content:   `{"next_id":3,"items":[{"id":2,"name":"Pie","price":"3"},42,{"id":1,"name":"Tea","price":"1"}]}`,
			wantNames: []string{"Pie", "Tea"},
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, itemsPath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to seed file: %s", err)
			}
			s := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))

			items, err := s.ListItems(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(items) != len(tt.wantNames) {
				t.Fatalf("unexpected count: want: %d, got: %d", len(tt.wantNames), len(items))
			}
			for i, want := range tt.wantNames {
				if items[i].Name != want {
					t.Fatalf("unexpected item %d: want: %s, got: %s", i, want, items[i].Name)
				}
				if items[i].ID == 0 {
					t.Fatalf("item %q has no id", items[i].Name)
				}
			}
		})
	}
}

func TestLegacyIDsAreStable(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	legacy := `[{"name":"Tea","price":"2.5","category":"Drinks","image":""}]`
	if err := afero.WriteFile(fs, itemsPath, []byte(legacy), 0o644); err != nil {
		t.Fatalf("failed to seed file: %s", err)
	}
	s := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))
	ctx := context.Background()

	first, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	second, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("id changed between reads: %d then %d", first[0].ID, second[0].ID)
	}

	if err := s.DeleteItem(ctx, first[0].ID); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestMalformedFileIsReplacedOnWrite(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, itemsPath, []byte(`garbage`), 0o644); err != nil {
		t.Fatalf("failed to seed file: %s", err)
	}
	s := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))

	if _, err := s.AddItem(context.Background(), models.ItemFields{
		Name:     "Burger",
		Price:    decimal.RequireFromString("9.99"),
		Category: "Food",
	}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	reopened := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))
	items, err := reopened.ListItems(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(items) != 1 || items[0].Name != "Burger" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestMixedLegacyFileKeepsEntriesOnWrite(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	legacy := `[{"name":"Tea","price":"2.5","category":"Drinks","image":""},` +
		`{"name":"Soup","price":"","category":"Food","image":""},` +
		`{"name":"Cake","price":"$4","category":"Food","image":"/images/1_cake.png"}]`
	if err := afero.WriteFile(fs, itemsPath, []byte(legacy), 0o644); err != nil {
		t.Fatalf("failed to seed file: %s", err)
	}
	ctx := context.Background()

	s := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))
	if _, err := s.AddItem(ctx, models.ItemFields{
		Name:     "Burger",
		Price:    decimal.RequireFromString("9.99"),
		Category: "Food",
	}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	reopened := document.New(sl.NewDiscardLogger(), document.NewFileBlob(fs, itemsPath))
	items, err := reopened.ListItems(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	byName := make(map[string]models.Item, len(items))
	for _, it := range items {
		byName[it.Name] = it
	}
	for _, name := range []string{"Tea", "Soup", "Cake", "Burger"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("item %q lost, have %+v", name, items)
		}
	}
	if !byName["Tea"].Price.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("valid price changed: %s", byName["Tea"].Price)
	}
	if !byName["Cake"].Price.IsZero() || byName["Cake"].Image != "/images/1_cake.png" {
		t.Fatalf("unexpected cake: %+v", byName["Cake"])
	}
}

func TestIDsAreNotReusedAfterRestart(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		newBlob func() func() document.Blob
	}{
		"file": {
			newBlob: func() func() document.Blob {
				fs := afero.NewMemMapFs()
				return func() document.Blob { return document.NewFileBlob(fs, itemsPath) }
			},
		},
		"bucket": {
			newBlob: func() func() document.Blob {
				bucket := newFakeBucket()
				return func() document.Blob { return document.NewBucketBlob(bucket, "menu", "items.json") }
			},
		},
	}

	for name, tt := range cases {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			open := tt.newBlob()
			fields := models.ItemFields{Name: "A", Price: decimal.NewFromInt(1), Category: "Food"}

			s := document.New(sl.NewDiscardLogger(), open())
			if _, err := s.AddItem(ctx, fields); err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			last, err := s.AddItem(ctx, fields)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if err := s.DeleteItem(ctx, last.ID); err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			restarted := document.New(sl.NewDiscardLogger(), open())
			next, err := restarted.AddItem(ctx, fields)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if next.ID <= last.ID {
				t.Fatalf("id reused after restart: deleted %d, got %d", last.ID, next.ID)
			}
		})
	}
}

func TestReadFailureIsReported(t *testing.T) {
	t.Parallel()

	bucket := newFakeBucket()
	bucket.getErr = errors.New("connection reset")
	s := document.New(sl.NewDiscardLogger(), document.NewBucketBlob(bucket, "menu", "items.json"))

	if _, err := s.ListItems(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data

	return &s3.PutObjectOutput{}, nil
}
