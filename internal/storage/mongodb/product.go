package mongodb

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/zarqash/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	s    *Store
	coll *mongo.Collection
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	cur, err := r.coll.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return decodeProducts(ctx, cur)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrNotFound
	}

	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p := doc.toDomain()
	return &p, nil
}

// GetByIDs returns the products that exist among ids. Malformed ids are
// skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []product.Product{}, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return decodeProducts(ctx, cur)
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	now := r.s.timestamp()
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt, doc.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	p.ID = doc.ID.Hex()
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrNotFound
	}
	set, err := patchSet(patch)
	if err != nil {
		return nil, err
	}
	set = append(set, bson.E{Key: "updatedAt", Value: r.s.timestamp()})

	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}
	p := doc.toDomain()
	return &p, nil
}

// patchSet renders the set fields of a patch as a $set document.
func patchSet(p product.Patch) (bson.D, error) {
	var (
		c   encoder
		set bson.D
	)
	add := func(key string, v any) { set = append(set, bson.E{Key: key, Value: v}) }

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.SubTitle != nil {
		add("subTitle", *p.SubTitle)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.BrandName != nil {
		add("brandName", *p.BrandName)
	}
	if p.Price != nil {
		add("price", toPriceDoc(&c, *p.Price))
	}
	if p.StrapType != nil {
		add("strapType", *p.StrapType)
	}
	if p.Variants != nil {
		add("variants", toVariantDocs(*p.Variants))
	}
	if p.Images != nil {
		add("images", nonNil(*p.Images))
	}
	if p.CoverImage != nil {
		add("coverImage", *p.CoverImage)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.SubCategory != nil {
		add("subCategory", *p.SubCategory)
	}
	if p.Gender != nil {
		add("gender", *p.Gender)
	}
	if p.Sizes != nil {
		add("sizes", nonNil(*p.Sizes))
	}
	if p.Sales != nil {
		add("sales", *p.Sales)
	}
	return set, c.err
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ReserveStock decrements the variant stock only while it still covers qty.
// The filter and the decrement are one atomic document update.
func (r *ProductRepository) ReserveStock(ctx context.Context, id string, k product.VariantKey, qty int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id": oid,
			"variants": bson.M{"$elemMatch": bson.M{
				"dialColor":  k.DialColor,
				"strapColor": k.StrapColor,
				"stock":      bson.M{"$gte": qty},
			}},
		},
		bson.M{
			"$inc": bson.M{"variants.$.stock": -qty, "sales": qty},
			"$set": bson.M{"updatedAt": r.s.timestamp()},
		},
	)
	if err != nil {
		return fmt.Errorf("reserving stock for product %q: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.diagnose(ctx, id, k, qty)
}

// ReleaseStock returns qty units to the variant.
func (r *ProductRepository) ReleaseStock(ctx context.Context, id string, k product.VariantKey, qty int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id": oid,
			"variants": bson.M{"$elemMatch": bson.M{
				"dialColor":  k.DialColor,
				"strapColor": k.StrapColor,
			}},
		},
		bson.M{
			"$inc": bson.M{"variants.$.stock": qty, "sales": -qty},
			"$set": bson.M{"updatedAt": r.s.timestamp()},
		},
	)
	if err != nil {
		return fmt.Errorf("releasing stock for product %q: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.diagnose(ctx, id, k, qty)
}

// diagnose explains why a conditional stock update matched nothing.
func (r *ProductRepository) diagnose(ctx context.Context, id string, k product.VariantKey, qty int) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	v, ok := p.Variant(k)
	if !ok {
		return product.ErrVariantNotFound
	}
	return product.NewInsufficientStockError(id, k, v.Stock, qty)
}

func decodeProducts(ctx context.Context, cur *mongo.Cursor) ([]product.Product, error) {
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	out := make([]product.Product, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}
