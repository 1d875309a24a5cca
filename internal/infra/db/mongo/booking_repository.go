package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "readyrent/internal/domain/booking"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
	"readyrent/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

// overlapFilter builds the inclusive-span conflict query: a booking conflicts
// when its start is on or before the requested end and its end is on or after
// the requested start.
func overlapFilter(productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status, excludeID domainbooking.BookingID) bson.M {
	filter := bson.M{
		"product_id": string(productID),
		"start_date": bson.M{"$lte": span.End.UnixMilli()},
		"end_date":   bson.M{"$gte": span.Start.UnixMilli()},
		"status":     bson.M{"$in": statusStrings(statuses)},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	return filter
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *BookingRepository) CountOverlapping(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status, excludeID domainbooking.BookingID) (int, error) {
	n, err := r.col.CountDocuments(ctx, overlapFilter(productID, span, statuses, excludeID))
	return int(n), err
}

func (r *BookingRepository) CountOverlappingAll(ctx context.Context, productIDs []domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status) (map[domainproduct.ProductID]int, error) {
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = string(id)
	}
	match := bson.M{
		"product_id": bson.M{"$in": ids},
		"start_date": bson.M{"$lte": span.End.UnixMilli()},
		"end_date":   bson.M{"$gte": span.Start.UnixMilli()},
		"status":     bson.M{"$in": statusStrings(statuses)},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$product_id", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[domainproduct.ProductID]int)
	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[domainproduct.ProductID(row.ID)] = row.Count
	}
	return out, cur.Err()
}

func (r *BookingRepository) OverlappingSpans(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status) ([]datespan.DateSpan, error) {
	opts := options.Find().SetSort(bson.M{"start_date": 1}).SetProjection(bson.M{"start_date": 1, "end_date": 1})
	cur, err := r.col.Find(ctx, overlapFilter(productID, span, statuses, ""), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var spans []datespan.DateSpan
	for cur.Next(ctx) {
		var row struct {
			StartDate int64 `bson:"start_date"`
			EndDate   int64 `bson:"end_date"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		spans = append(spans, datespan.DateSpan{Start: timestampToTime(row.StartDate), End: timestampToTime(row.EndDate)})
	}
	return spans, cur.Err()
}

type bookingDocument struct {
	ID          string `bson:"_id"`
	ProductID   string `bson:"product_id"`
	StartDate   int64  `bson:"start_date"`
	EndDate     int64  `bson:"end_date"`
	Status      string `bson:"status"`
	TotalAmount int64  `bson:"total_amount"`
	Currency    string `bson:"currency"`
	TotalDays   int    `bson:"total_days"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
	Version     int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:          string(b.ID),
		ProductID:   string(b.ProductID),
		StartDate:   b.Span.Start.UnixMilli(),
		EndDate:     b.Span.End.UnixMilli(),
		Status:      string(b.Status),
		TotalAmount: b.TotalPrice.Amount,
		Currency:    b.TotalPrice.Currency,
		TotalDays:   b.TotalDays,
		CreatedAt:   b.CreatedAt.UnixMilli(),
		UpdatedAt:   b.UpdatedAt.UnixMilli(),
		Version:     b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		ProductID:  domainproduct.ProductID(d.ProductID),
		Span:       datespan.DateSpan{Start: timestampToTime(d.StartDate), End: timestampToTime(d.EndDate)},
		Status:     domainbooking.Status(d.Status),
		TotalPrice: money.Money{Amount: d.TotalAmount, Currency: d.Currency},
		TotalDays:  d.TotalDays,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
