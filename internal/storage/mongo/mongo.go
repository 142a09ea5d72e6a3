// Package mongo is the document-database item store. Ids come from a
// counters collection so they stay small integers like the other backends.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"menu-service/internal/data/models"
	"menu-service/internal/storage"
)

const (
	itemsCollection    = "items"
	countersCollection = "counters"
)

type itemDocument struct {
	ID          int64                `bson:"_id"`
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Description string               `bson:"description"`
	Image       string               `bson:"image"`
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

type Storage struct {
	client   *mongo.Client
	items    *mongo.Collection
	counters *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := client.Database(database)

	return &Storage{
		client:   client,
		items:    db.Collection(itemsCollection),
		counters: db.Collection(countersCollection),
	}, nil
}

func (s *Storage) ListItems(ctx context.Context) ([]models.Item, error) {
	const op = "storage.mongo.ListItems"

	cur, err := s.items.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	items := []models.Item{}
	for cur.Next(ctx) {
		var doc itemDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		it, err := doc.item()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, it)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Storage) AddItem(ctx context.Context, fields models.ItemFields) (models.Item, error) {
	const op = "storage.mongo.AddItem"

	id, err := s.nextID(ctx)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	it := fields.Item(id)
	doc, err := newItemDocument(it)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

// UpdateItem sets only the fields present in patch.
func (s *Storage) UpdateItem(ctx context.Context, id int64, patch models.ItemPatch) error {
	const op = "storage.mongo.UpdateItem"

	if patch.Empty() {
		err := s.items.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	set, err := patchDocument(patch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.items.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	return nil
}

func (s *Storage) DeleteItem(ctx context.Context, id int64) error {
	const op = "storage.mongo.DeleteItem"

	res, err := s.items.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: itemsCollection}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, err
	}

	return c.Seq, nil
}

func newItemDocument(it models.Item) (itemDocument, error) {
	price, err := primitive.ParseDecimal128(it.Price.String())
	if err != nil {
		return itemDocument{}, err
	}

	return itemDocument{
		ID:          it.ID,
		Name:        it.Name,
		Price:       price,
		Category:    it.Category,
		Description: it.Description,
		Image:       it.Image,
	}, nil
}

func (d itemDocument) item() (models.Item, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return models.Item{}, fmt.Errorf("item %d: price %q: %w", d.ID, d.Price.String(), err)
	}

	return models.Item{
		ID:          d.ID,
		Name:        d.Name,
		Price:       price,
		Category:    d.Category,
		Description: d.Description,
		Image:       d.Image,
	}, nil
}

func patchDocument(p models.ItemPatch) (bson.D, error) {
	var set bson.D

	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.Price != nil {
		price, err := primitive.ParseDecimal128(p.Price.String())
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "price", Value: price})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *p.Category})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}
	if p.Image != nil {
		set = append(set, bson.E{Key: "image", Value: *p.Image})
	}

	return set, nil
}
