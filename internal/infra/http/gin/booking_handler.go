package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"readyrent/internal/app/services/rental"
	domainbooking "readyrent/internal/domain/booking"
	domainproduct "readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/money"
)

type BookingHandler struct {
	Rental          *rental.Service
	DefaultCurrency string
}

type createBookingRequest struct {
	ProductID   string `json:"product_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

type bookingResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	TotalDays   int    `json:"total_days"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = h.DefaultCurrency
	}
	price, err := money.New(req.TotalAmount, currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Rental.CreateBooking(c.Request.Context(), rental.CreateBookingParams{
		ProductID:  domainproduct.ProductID(req.ProductID),
		Start:      start,
		End:        end,
		TotalPrice: price,
	})
	if err != nil {
		var unavailable rental.ErrUnavailable
		if errors.As(err, &unavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": string(unavailable.Reason)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, bookingResponse{
		ID:          string(b.ID),
		ProductID:   string(b.ProductID),
		StartDate:   b.Span.Start.Format(dateLayout),
		EndDate:     b.Span.End.Format(dateLayout),
		Status:      string(b.Status),
		TotalAmount: b.TotalPrice.Amount,
		Currency:    b.TotalPrice.Currency,
		TotalDays:   b.TotalDays,
	})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	// body is optional; an absent reason is fine
	_ = c.ShouldBindJSON(&req)
	result, err := h.Rental.CancelBooking(c.Request.Context(), domainbooking.BookingID(c.Param("id")), req.Reason)
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !result.Allowed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"allowed": false, "reason": result.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"allowed":           true,
		"fee_percent":       result.Fee.FeePercent,
		"fee_amount":        result.Fee.FeeAmount.Amount,
		"refund_amount":     result.Fee.RefundAmount.Amount,
		"currency":          result.Fee.FeeAmount.Currency,
		"hours_until_start": result.Fee.HoursUntilStart,
	})
}

type returnBookingRequest struct {
	ReturnDate string `json:"return_date"`
}

func (h BookingHandler) Return(c *gin.Context) {
	var req returnBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	returnedAt, err := time.Parse(dateLayout, req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid return_date"})
		return
	}
	result, err := h.Rental.ProcessReturn(c.Request.Context(), domainbooking.BookingID(c.Param("id")), returnedAt)
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"refund_amount":  result.Refund.RefundAmount.Amount,
		"refund_per_day": result.Refund.RefundPerDay.Amount,
		"unused_days":    result.Refund.UnusedDays,
		"currency":       result.Refund.RefundAmount.Currency,
	})
}

var _ BookingHTTP = BookingHandler{}
