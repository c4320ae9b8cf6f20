package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/zarqash/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by MongoDB.
type OrderRepository struct {
	s    *Store
	coll *mongo.Collection
}

// ValidID reports whether id is a well-formed ObjectID.
func (r *OrderRepository) ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	now := r.s.timestamp()
	doc, err := toOrderDoc(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt, doc.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}
	o.ID = doc.ID.Hex()
	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, order.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(ctx, bson.M{"orderNumber": number})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*order.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o := doc.toDomain()
	return &o, nil
}

// List fetches one page and the total match count concurrently.
func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) ([]order.Order, int, error) {
	filter := bson.D{}
	if q.Email != "" {
		filter = append(filter, bson.E{Key: "customerEmail", Value: q.Email})
	}
	if q.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: q.Status})
	}

	dir := 1
	if q.SortDesc {
		dir = -1
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = order.SortCreatedAt
	}
	opts := options.Find().
		SetSort(bson.D{{Key: string(sortBy), Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	var (
		docs  []orderDoc
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := r.coll.Find(gctx, filter, opts)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		if err := cur.All(gctx, &docs); err != nil {
			return fmt.Errorf("decoding orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := r.coll.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("counting orders: %w", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]order.Order, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, int(total), nil
}

// Replace overwrites the order only while the stored updatedAt still equals
// prevUpdatedAt.
func (r *OrderRepository) Replace(ctx context.Context, o *order.Order, prevUpdatedAt time.Time) error {
	doc, err := toOrderDoc(o)
	if err != nil {
		return err
	}
	doc.UpdatedAt = r.s.timestamp()
	if !doc.UpdatedAt.After(prevUpdatedAt) {
		doc.UpdatedAt = prevUpdatedAt.Add(time.Millisecond)
	}

	filter := bson.M{"_id": doc.ID, "updatedAt": prevUpdatedAt}
	// Number and creation time are immutable; keep the stored values.
	var stored orderDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": doc.ID},
		options.FindOne().SetProjection(bson.M{"orderNumber": 1, "createdAt": 1})).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return order.ErrNotFound
		}
		return fmt.Errorf("getting order %q: %w", o.ID, err)
	}
	doc.Number, doc.CreatedAt = stored.Number, stored.CreatedAt

	res, err := r.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("replacing order %q: %w", o.ID, err)
	}
	if res.MatchedCount == 0 {
		return order.ErrConcurrentUpdate
	}

	o.Number = doc.Number
	o.CreatedAt = doc.CreatedAt.UTC()
	o.UpdatedAt = doc.UpdatedAt
	return nil
}
