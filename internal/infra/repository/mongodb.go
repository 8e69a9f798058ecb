package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/PropertyListing/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCatalog serves property pages from a MongoDB collection.
type MongoCatalog struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoCatalog(client *mongo.Client, dbName, collectionName string) (*MongoCatalog, error) {
	db := client.Database(dbName)
	repo := &MongoCatalog{
		db:         db,
		collection: db.Collection(collectionName),
	}

	if err := repo.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoCatalog) createIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("price_idx"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("name_ci_idx").SetCollation(nameCollation()),
		},
	}

	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)
	_, err := r.collection.Indexes().CreateMany(ctx, models, opts)
	return err
}

// Find returns one page of properties matching q. Text filters are case-insensitive substring
// matches and price bounds are inclusive, as in MemoryCatalog.
func (r *MongoCatalog) Find(ctx context.Context, q domain.PageQuery) (*domain.Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filter := buildFilter(q.Filters)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	opts := options.Find().
		SetSort(buildSort(q.Sort)).
		SetSkip(int64(domain.Offset(q.Page, q.PageSize))).
		SetLimit(int64(q.PageSize))
	if q.Sort.By == domain.SortByName {
		opts.SetCollation(nameCollation())
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}

	// All closes the cursor.
	items := make([]domain.Property, 0, q.PageSize)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	return domain.NewPage(items, q.Page, q.PageSize, int(total)), nil
}

func (r *MongoCatalog) Get(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoCatalog) BulkUpsert(ctx context.Context, properties []domain.Property) error {
	if len(properties) == 0 {
		return nil
	}

	var models []mongo.WriteModel
	for _, p := range properties {
		filter := bson.M{"_id": p.ID}
		update := bson.M{"$set": p}
		model := mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true)
		models = append(models, model)
	}

	opts := options.BulkWrite().SetOrdered(false)
	_, err := r.collection.BulkWrite(ctx, models, opts)
	if err != nil {
		return fmt.Errorf("failed to bulk upsert properties: %w", err)
	}
	return nil
}

func (r *MongoCatalog) Count(ctx context.Context) (int, error) {
	n, err := r.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return int(n), nil
}

func buildFilter(f domain.Filters) bson.M {
	filter := bson.M{}
	if f.Name != nil && *f.Name != "" {
		filter["name"] = containsPattern(*f.Name)
	}
	if f.Address != nil && *f.Address != "" {
		filter["address"] = containsPattern(*f.Address)
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func containsPattern(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// buildSort always ends with _id so that skip/limit paging is deterministic.
func buildSort(s domain.Sort) bson.D {
	dir := 1
	if s.Dir == domain.SortDirDesc {
		dir = -1
	}
	switch s.By {
	case domain.SortByPrice:
		return bson.D{{Key: "price", Value: dir}, {Key: "_id", Value: 1}}
	case domain.SortByName:
		return bson.D{{Key: "name", Value: dir}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "_id", Value: 1}}
}

func nameCollation() *options.Collation {
	return &options.Collation{Locale: "en", Strength: 2}
}
