package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"readyrent/internal/domain/availability"
	domainbooking "readyrent/internal/domain/booking"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

const dateLayout = "2006-01-02"

type AvailabilityHandler struct {
	Checker *availability.CachedChecker
	// MaxCalendarDays caps the available-dates horizon.
	MaxCalendarDays int
}

type availabilityResponse struct {
	Available         bool   `json:"available"`
	Reason            string `json:"reason"`
	ConflictCount     int    `json:"conflict_count"`
	QuantityAvailable int    `json:"quantity_available"`
}

func toAvailabilityResponse(r availability.Result) availabilityResponse {
	return availabilityResponse{
		Available:         r.Available,
		Reason:            string(r.Reason),
		ConflictCount:     r.ConflictCount,
		QuantityAvailable: r.QuantityAvailable,
	}
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	span, ok := spanFromQuery(c)
	if !ok {
		return
	}
	exclude := domainbooking.BookingID(c.Query("exclude_booking_id"))
	result, err := h.Checker.Check(c.Request.Context(), domainproduct.ProductID(c.Param("id")), span, exclude)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toAvailabilityResponse(result))
}

func (h AvailabilityHandler) AvailableDates(c *gin.Context) {
	span, ok := spanFromQuery(c)
	if !ok {
		return
	}
	dates, err := h.Checker.Direct().AvailableDates(c.Request.Context(), domainproduct.ProductID(c.Param("id")), span, h.MaxCalendarDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := []string{}
	for d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	c.JSON(http.StatusOK, gin.H{"available_dates": out})
}

type batchAvailabilityRequest struct {
	ProductIDs []string `json:"product_ids"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
}

func (h AvailabilityHandler) Batch(c *gin.Context) {
	var req batchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span, ok := parseSpan(c, req.StartDate, req.EndDate)
	if !ok {
		return
	}
	ids := make([]domainproduct.ProductID, len(req.ProductIDs))
	for i, id := range req.ProductIDs {
		ids[i] = domainproduct.ProductID(id)
	}
	results, err := h.Checker.CheckMany(c.Request.Context(), ids, span)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := make(map[string]availabilityResponse, len(results))
	for id, result := range results {
		out[string(id)] = toAvailabilityResponse(result)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func spanFromQuery(c *gin.Context) (datespan.DateSpan, bool) {
	return parseSpan(c, c.Query("start_date"), c.Query("end_date"))
}

func parseSpan(c *gin.Context, start, end string) (datespan.DateSpan, bool) {
	startAt, err := time.Parse(dateLayout, start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return datespan.DateSpan{}, false
	}
	endAt, err := time.Parse(dateLayout, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return datespan.DateSpan{}, false
	}
	span, err := datespan.New(startAt, endAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return datespan.DateSpan{}, false
	}
	return span, true
}

var _ AvailabilityHTTP = AvailabilityHandler{}
