package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domainbooking "readyrent/internal/domain/booking"
	domaininventory "readyrent/internal/domain/inventory"
	domainmaintenance "readyrent/internal/domain/maintenance"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

// ProductCatalog is an in-memory catalog port implementation. The real
// catalog lives in another service; this stands in for it in tests and the
// single-binary demo setup.
type ProductCatalog struct {
	mu    sync.RWMutex
	items map[domainproduct.ProductID]domainproduct.Product
}

func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{items: make(map[domainproduct.ProductID]domainproduct.Product)}
}

func (c *ProductCatalog) Put(p domainproduct.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
}

func (c *ProductCatalog) ByID(ctx context.Context, id domainproduct.ProductID) (domainproduct.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[id]
	if !ok {
		return domainproduct.Product{}, domainproduct.ErrProductNotFound
	}
	return p, nil
}

func (c *ProductCatalog) ByIDs(ctx context.Context, ids []domainproduct.ProductID) (map[domainproduct.ProductID]domainproduct.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[domainproduct.ProductID]domainproduct.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	r.items[b.ID] = b
	return nil
}

func (r *BookingRepository) CountOverlapping(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status, excludeID domainbooking.BookingID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, b := range r.items {
		if matchesConflict(b, productID, span, statuses, excludeID) {
			count++
		}
	}
	return count, nil
}

func (r *BookingRepository) CountOverlappingAll(ctx context.Context, productIDs []domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status) (map[domainproduct.ProductID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[domainproduct.ProductID]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[domainproduct.ProductID]int)
	for _, b := range r.items {
		if _, ok := wanted[b.ProductID]; !ok {
			continue
		}
		if matchesConflict(b, b.ProductID, span, statuses, "") {
			out[b.ProductID]++
		}
	}
	return out, nil
}

func (r *BookingRepository) OverlappingSpans(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status) ([]datespan.DateSpan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var spans []datespan.DateSpan
	for _, b := range r.items {
		if matchesConflict(b, productID, span, statuses, "") {
			spans = append(spans, b.Span)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })
	return spans, nil
}

func matchesConflict(b *domainbooking.Booking, productID domainproduct.ProductID, span datespan.DateSpan, statuses []domainbooking.Status, excludeID domainbooking.BookingID) bool {
	if b.ProductID != productID {
		return false
	}
	if excludeID != "" && b.ID == excludeID {
		return false
	}
	if !statusIncluded(b.Status, statuses) {
		return false
	}
	return b.Span.Overlaps(span)
}

func statusIncluded(status domainbooking.Status, allowed []domainbooking.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

// InventoryRepository keeps inventory records in memory.
type InventoryRepository struct {
	mu    sync.RWMutex
	items map[domainproduct.ProductID]*domaininventory.Record
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{items: make(map[domainproduct.ProductID]*domaininventory.Record)}
}

func (r *InventoryRepository) ByProduct(ctx context.Context, id domainproduct.ProductID) (*domaininventory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, domaininventory.ErrRecordNotFound
	}
	return rec, nil
}

func (r *InventoryRepository) ByProducts(ctx context.Context, ids []domainproduct.ProductID) (map[domainproduct.ProductID]*domaininventory.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domainproduct.ProductID]*domaininventory.Record, len(ids))
	for _, id := range ids {
		if rec, ok := r.items[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (r *InventoryRepository) Save(ctx context.Context, rec *domaininventory.Record) error {
	if err := rec.CheckInvariant(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Version++
	r.items[rec.ProductID] = rec
	return nil
}

// MovementLog is the in-memory append-only audit trail.
type MovementLog struct {
	mu    sync.RWMutex
	items []domaininventory.Movement
}

func NewMovementLog() *MovementLog {
	return &MovementLog{}
}

func (l *MovementLog) Append(ctx context.Context, m domaininventory.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, m)
	return nil
}

func (l *MovementLog) ByProduct(ctx context.Context, id domainproduct.ProductID, limit int) ([]domaininventory.Movement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domaininventory.Movement
	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].ProductID != id {
			continue
		}
		out = append(out, l.items[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// AlertRepository enforces at-most-one outstanding alert per product and kind.
type AlertRepository struct {
	mu    sync.Mutex
	items []domaininventory.Alert
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{}
}

func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert domaininventory.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ProductID == alert.ProductID && existing.Kind == alert.Kind && !existing.Resolved {
			return false, nil
		}
	}
	r.items = append(r.items, alert)
	return true, nil
}

func (r *AlertRepository) Resolve(ctx context.Context, productID domainproduct.ProductID, kind domaininventory.AlertKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ProductID == productID && r.items[i].Kind == kind && !r.items[i].Resolved {
			r.items[i].Resolved = true
		}
	}
	return nil
}

func (r *AlertRepository) Outstanding(ctx context.Context, productID domainproduct.ProductID) ([]domaininventory.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domaininventory.Alert
	for _, alert := range r.items {
		if alert.ProductID == productID && !alert.Resolved {
			out = append(out, alert)
		}
	}
	return out, nil
}

// MaintenanceRepository keeps maintenance windows in memory.
type MaintenanceRepository struct {
	mu    sync.RWMutex
	items map[string]*domainmaintenance.Window
}

func NewMaintenanceRepository() *MaintenanceRepository {
	return &MaintenanceRepository{items: make(map[string]*domainmaintenance.Window)}
}

func (r *MaintenanceRepository) Save(ctx context.Context, w *domainmaintenance.Window) error {
	if w.ID == "" {
		return errors.New("memory: maintenance window id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[w.ID] = w
	return nil
}

func (r *MaintenanceRepository) BlockingOverlapping(ctx context.Context, productID domainproduct.ProductID, span datespan.DateSpan) ([]domainmaintenance.Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainmaintenance.Window
	for _, w := range r.items {
		if w.ProductID != productID || !w.Blocking() {
			continue
		}
		if w.Span().Overlaps(span) {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *MaintenanceRepository) BlockedProducts(ctx context.Context, productIDs []domainproduct.ProductID, span datespan.DateSpan) (map[domainproduct.ProductID]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[domainproduct.ProductID]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[domainproduct.ProductID]bool)
	for _, w := range r.items {
		if _, ok := wanted[w.ProductID]; !ok {
			continue
		}
		if w.Blocking() && w.Span().Overlaps(span) {
			out[w.ProductID] = true
		}
	}
	return out, nil
}
