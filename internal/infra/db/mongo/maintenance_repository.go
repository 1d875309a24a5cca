package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainmaintenance "readyrent/internal/domain/maintenance"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

type MaintenanceRepository struct {
	col *mongo.Collection
}

func NewMaintenanceRepository(db *mongo.Database) *MaintenanceRepository {
	return &MaintenanceRepository{col: db.Collection("maintenance_windows")}
}

func (r *MaintenanceRepository) Save(ctx context.Context, w *domainmaintenance.Window) error {
	doc := windowDocument{
		ID:             w.ID,
		ProductID:      string(w.ProductID),
		StartAt:        w.StartAt.UnixMilli(),
		EndAt:          w.EndAt.UnixMilli(),
		BlocksBookings: w.BlocksBookings,
		Status:         string(w.Status),
		Notes:          w.Notes,
		CreatedAt:      w.CreatedAt.UnixMilli(),
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

// blockingFilter matches active blocking windows whose instants touch the
// span. Date-granularity comparison happens in memory after decode; the query
// over-fetches by at most one day on each side.
func blockingFilter(productSel bson.M, span datespan.DateSpan) bson.M {
	filter := bson.M{
		"blocks_bookings": true,
		"status":          bson.M{"$in": []string{string(domainmaintenance.StatusScheduled), string(domainmaintenance.StatusInProgress)}},
		"start_at":        bson.M{"$lt": span.End.AddDate(0, 0, 1).UnixMilli()},
		"end_at":          bson.M{"$gte": span.Start.UnixMilli()},
	}
	for k, v := range productSel {
		filter[k] = v
	}
	return filter
}

func (r *MaintenanceRepository) BlockingOverlapping(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan) ([]domainmaintenance.Window, error) {
	cur, err := r.col.Find(ctx, blockingFilter(bson.M{"product_id": string(productID)}, span))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainmaintenance.Window
	for cur.Next(ctx) {
		var doc windowDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		w := doc.toWindow()
		if w.Span().Overlaps(span) {
			out = append(out, w)
		}
	}
	return out, cur.Err()
}

func (r *MaintenanceRepository) BlockedProducts(ctx context.Context, productIDs []domainproduct.ProductID, span datespan.DateSpan) (map[domainproduct.ProductID]bool, error) {
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = string(id)
	}
	cur, err := r.col.Find(ctx, blockingFilter(bson.M{"product_id": bson.M{"$in": ids}}, span))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[domainproduct.ProductID]bool)
	for cur.Next(ctx) {
		var doc windowDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		w := doc.toWindow()
		if w.Span().Overlaps(span) {
			out[w.ProductID] = true
		}
	}
	return out, cur.Err()
}

type windowDocument struct {
	ID             string `bson:"_id"`
	ProductID      string `bson:"product_id"`
	StartAt        int64  `bson:"start_at"`
	EndAt          int64  `bson:"end_at"`
	BlocksBookings bool   `bson:"blocks_bookings"`
	Status         string `bson:"status"`
	Notes          string `bson:"notes"`
	CreatedAt      int64  `bson:"created_at"`
}

func (d windowDocument) toWindow() domainmaintenance.Window {
	return domainmaintenance.Window{
		ID:             d.ID,
		ProductID:      domainproduct.ProductID(d.ProductID),
		StartAt:        timestampToTime(d.StartAt),
		EndAt:          timestampToTime(d.EndAt),
		BlocksBookings: d.BlocksBookings,
		Status:         domainmaintenance.WindowStatus(d.Status),
		Notes:          d.Notes,
		CreatedAt:      timestampToTime(d.CreatedAt),
	}
}
