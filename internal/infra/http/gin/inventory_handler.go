package ginserver

import (
	"errors"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"readyrent/internal/app/services/ledger"
	domaininventory "readyrent/internal/domain/inventory"
	domainproduct "readyrent/internal/domain/product"
)

type InventoryHandler struct {
	Ledger *ledger.Service
}

func (h InventoryHandler) Get(c *gin.Context) {
	record, err := h.Ledger.Record(c.Request.Context(), domainproduct.ProductID(c.Param("id")))
	if err != nil {
		if errors.Is(err, domaininventory.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":           string(record.ProductID),
		"quantity_total":       record.QuantityTotal,
		"quantity_available":   record.QuantityAvailable,
		"quantity_rented":      record.QuantityRented,
		"quantity_maintenance": record.QuantityMaintenance,
		"low_stock_threshold":  record.LowStockThreshold,
	})
}

type initializeStockRequest struct {
	QuantityTotal     int `json:"quantity_total"`
	LowStockThreshold int `json:"low_stock_threshold"`
}

func (h InventoryHandler) Initialize(c *gin.Context) {
	var req initializeStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := domainproduct.ProductID(c.Param("id"))
	err := h.Ledger.InitializeStock(c.Request.Context(), productID, req.QuantityTotal, req.LowStockThreshold)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyTracked) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

type adjustStockRequest struct {
	Delta int    `json:"delta"`
	Actor string `json:"actor"`
	Notes string `json:"notes"`
}

func (h InventoryHandler) Adjust(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := domainproduct.ProductID(c.Param("id"))
	ref := domaininventory.Reference{Kind: "manual_adjustment", Actor: req.Actor, Notes: req.Notes}
	if err := h.Ledger.AdjustStock(c.Request.Context(), productID, req.Delta, ref); err != nil {
		writeLedgerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type maintenanceStockRequest struct {
	Quantity  int    `json:"quantity"`
	Direction string `json:"direction"` // "in" quarantines units, "out" restores them
	Actor     string `json:"actor"`
	Notes     string `json:"notes"`
}

func (h InventoryHandler) Maintenance(c *gin.Context) {
	var req maintenanceStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := domainproduct.ProductID(c.Param("id"))
	ref := domaininventory.Reference{Kind: "manual_maintenance", Actor: req.Actor, Notes: req.Notes}
	var err error
	switch req.Direction {
	case "in", "":
		err = h.Ledger.MoveToMaintenance(c.Request.Context(), productID, req.Quantity, ref)
	case "out":
		err = h.Ledger.ReturnFromMaintenance(c.Request.Context(), productID, req.Quantity, ref)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be \"in\" or \"out\""})
		return
	}
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h InventoryHandler) Movements(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	movements, err := h.Ledger.Movements(c.Request.Context(), domainproduct.ProductID(c.Param("id")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(movements))
	for _, m := range movements {
		out = append(out, gin.H{
			"id":                m.ID,
			"kind":              string(m.Kind),
			"quantity":          m.Quantity,
			"previous_quantity": m.PreviousQuantity,
			"new_quantity":      m.NewQuantity,
			"reference_kind":    m.ReferenceKind,
			"reference_id":      m.ReferenceID,
			"actor":             m.Actor,
			"notes":             m.Notes,
			"at":                m.At,
		})
	}
	c.JSON(http.StatusOK, gin.H{"movements": out})
}

func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domaininventory.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domaininventory.ErrInsufficientStock),
		errors.Is(err, domaininventory.ErrNegativeAdjustment):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domaininventory.ErrLockContention):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
	case errors.Is(err, domaininventory.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

var _ InventoryHTTP = InventoryHandler{}
