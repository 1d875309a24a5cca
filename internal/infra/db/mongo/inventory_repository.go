package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaininventory "readyrent/internal/domain/inventory"
	domainproduct "readyrent/internal/domain/product"
)

type InventoryRepository struct {
	col *mongo.Collection
}

func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	return &InventoryRepository{col: db.Collection("agg_inventory")}
}

func (r *InventoryRepository) ByProduct(ctx context.Context, id domainproduct.ProductID) (*domaininventory.Record, error) {
	var doc inventoryDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaininventory.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *InventoryRepository) ByProducts(ctx context.Context, ids []domainproduct.ProductID) (map[domainproduct.ProductID]*domaininventory.Record, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[domainproduct.ProductID]*domaininventory.Record)
	for cur.Next(ctx) {
		var doc inventoryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rec := doc.toAggregate()
		out[rec.ProductID] = rec
	}
	return out, cur.Err()
}

func (r *InventoryRepository) Save(ctx context.Context, rec *domaininventory.Record) error {
	if err := rec.CheckInvariant(); err != nil {
		return err
	}
	doc := newInventoryDocument(rec)
	filter := bson.M{"_id": doc.ID, "version": rec.Version}
	doc.Version = rec.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	rec.Version = doc.Version
	return nil
}

type inventoryDocument struct {
	ID                  string `bson:"_id"`
	QuantityTotal       int    `bson:"quantity_total"`
	QuantityAvailable   int    `bson:"quantity_available"`
	QuantityRented      int    `bson:"quantity_rented"`
	QuantityMaintenance int    `bson:"quantity_maintenance"`
	LowStockThreshold   int    `bson:"low_stock_threshold"`
	UpdatedAt           int64  `bson:"updated_at"`
	Version             int64  `bson:"version"`
}

func newInventoryDocument(r *domaininventory.Record) inventoryDocument {
	return inventoryDocument{
		ID:                  string(r.ProductID),
		QuantityTotal:       r.QuantityTotal,
		QuantityAvailable:   r.QuantityAvailable,
		QuantityRented:      r.QuantityRented,
		QuantityMaintenance: r.QuantityMaintenance,
		LowStockThreshold:   r.LowStockThreshold,
		UpdatedAt:           r.UpdatedAt.UnixMilli(),
		Version:             r.Version,
	}
}

func (d inventoryDocument) toAggregate() *domaininventory.Record {
	return &domaininventory.Record{
		ProductID:           domainproduct.ProductID(d.ID),
		QuantityTotal:       d.QuantityTotal,
		QuantityAvailable:   d.QuantityAvailable,
		QuantityRented:      d.QuantityRented,
		QuantityMaintenance: d.QuantityMaintenance,
		LowStockThreshold:   d.LowStockThreshold,
		UpdatedAt:           timestampToTime(d.UpdatedAt),
		Version:             d.Version,
	}
}

// MovementLog appends stock movements to a write-only collection.
type MovementLog struct {
	col *mongo.Collection
}

func NewMovementLog(db *mongo.Database) *MovementLog {
	return &MovementLog{col: db.Collection("inventory_movements")}
}

func (l *MovementLog) Append(ctx context.Context, m domaininventory.Movement) error {
	_, err := l.col.InsertOne(ctx, movementDocument{
		ID:               m.ID,
		ProductID:        string(m.ProductID),
		Kind:             string(m.Kind),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ReferenceKind:    m.ReferenceKind,
		ReferenceID:      m.ReferenceID,
		Actor:            m.Actor,
		Notes:            m.Notes,
		At:               m.At.UnixMilli(),
	})
	return err
}

func (l *MovementLog) ByProduct(ctx context.Context, id domainproduct.ProductID, limit int) ([]domaininventory.Movement, error) {
	opts := options.Find().SetSort(bson.M{"at": -1})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := l.col.Find(ctx, bson.M{"product_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domaininventory.Movement
	for cur.Next(ctx) {
		var doc movementDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domaininventory.Movement{
			ID:               doc.ID,
			ProductID:        domainproduct.ProductID(doc.ProductID),
			Kind:             domaininventory.MovementKind(doc.Kind),
			Quantity:         doc.Quantity,
			PreviousQuantity: doc.PreviousQuantity,
			NewQuantity:      doc.NewQuantity,
			ReferenceKind:    doc.ReferenceKind,
			ReferenceID:      doc.ReferenceID,
			Actor:            doc.Actor,
			Notes:            doc.Notes,
			At:               timestampToTime(doc.At),
		})
	}
	return out, cur.Err()
}

type movementDocument struct {
	ID               string `bson:"_id"`
	ProductID        string `bson:"product_id"`
	Kind             string `bson:"kind"`
	Quantity         int    `bson:"quantity"`
	PreviousQuantity int    `bson:"previous_quantity"`
	NewQuantity      int    `bson:"new_quantity"`
	ReferenceKind    string `bson:"reference_kind"`
	ReferenceID      string `bson:"reference_id"`
	Actor            string `bson:"actor"`
	Notes            string `bson:"notes"`
	At               int64  `bson:"at"`
}

// AlertRepository backs stock alerts. The create-if-absent semantics rely on a
// partial unique index on (product_id, kind) where resolved is false.
type AlertRepository struct {
	col *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{col: db.Collection("inventory_alerts")}
}

func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert domaininventory.Alert) (bool, error) {
	filter := bson.M{"product_id": string(alert.ProductID), "kind": string(alert.Kind), "resolved": false}
	update := bson.M{"$setOnInsert": alertDocument{
		ID:        alert.ID,
		ProductID: string(alert.ProductID),
		Kind:      string(alert.Kind),
		Quantity:  alert.Quantity,
		Resolved:  false,
		CreatedAt: alert.CreatedAt.UnixMilli(),
	}}
	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (r *AlertRepository) Resolve(ctx context.Context, productID domainproduct.ProductID, kind domaininventory.AlertKind) error {
	filter := bson.M{"product_id": string(productID), "kind": string(kind), "resolved": false}
	_, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"resolved": true}})
	return err
}

func (r *AlertRepository) Outstanding(ctx context.Context, productID domainproduct.ProductID) ([]domaininventory.Alert, error) {
	cur, err := r.col.Find(ctx, bson.M{"product_id": string(productID), "resolved": false})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domaininventory.Alert
	for cur.Next(ctx) {
		var doc alertDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domaininventory.Alert{
			ID:        doc.ID,
			ProductID: domainproduct.ProductID(doc.ProductID),
			Kind:      domaininventory.AlertKind(doc.Kind),
			Quantity:  doc.Quantity,
			Resolved:  doc.Resolved,
			CreatedAt: timestampToTime(doc.CreatedAt),
		})
	}
	return out, cur.Err()
}

type alertDocument struct {
	ID        string `bson:"_id"`
	ProductID string `bson:"product_id"`
	Kind      string `bson:"kind"`
	Quantity  int    `bson:"quantity"`
	Resolved  bool   `bson:"resolved"`
	CreatedAt int64  `bson:"created_at"`
}
