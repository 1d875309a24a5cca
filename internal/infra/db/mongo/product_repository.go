package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainproduct "readyrent/internal/domain/product"
)

// ProductCatalog reads the catalog projection the marketplace service keeps
// replicated into this database.
type ProductCatalog struct {
	col *mongo.Collection
}

func NewProductCatalog(db *mongo.Database) *ProductCatalog {
	return &ProductCatalog{col: db.Collection("catalog_products")}
}

func (c *ProductCatalog) ByID(ctx context.Context, id domainproduct.ProductID) (domainproduct.Product, error) {
	var doc productDocument
	if err := c.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainproduct.Product{}, domainproduct.ErrProductNotFound
		}
		return domainproduct.Product{}, err
	}
	return doc.toProduct(), nil
}

func (c *ProductCatalog) ByIDs(ctx context.Context, ids []domainproduct.ProductID) (map[domainproduct.ProductID]domainproduct.Product, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	cur, err := c.col.Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[domainproduct.ProductID]domainproduct.Product)
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		p := doc.toProduct()
		out[p.ID] = p
	}
	return out, cur.Err()
}

type productDocument struct {
	ID       string `bson:"_id"`
	Status   string `bson:"status"`
	Category string `bson:"category"`
}

func (d productDocument) toProduct() domainproduct.Product {
	return domainproduct.Product{
		ID:       domainproduct.ProductID(d.ID),
		Status:   domainproduct.Status(d.Status),
		Category: d.Category,
	}
}
