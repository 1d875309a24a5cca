package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"readyrent/internal/infra/config"
	"readyrent/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	AvailableDates(c *gin.Context)
	Batch(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Cancel(c *gin.Context)
	Return(c *gin.Context)
}

type InventoryHTTP interface {
	Get(c *gin.Context)
	Initialize(c *gin.Context)
	Adjust(c *gin.Context)
	Maintenance(c *gin.Context)
	Movements(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Booking      BookingHTTP
	Inventory    InventoryHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/products/:id/availability", h.Availability.Check)
		api.GET("/products/:id/available-dates", h.Availability.AvailableDates)
		api.POST("/availability/batch", h.Availability.Batch)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/return", h.Booking.Return)
	}
	if h.Inventory != nil {
		api.GET("/products/:id/inventory", h.Inventory.Get)
		api.POST("/products/:id/inventory", h.Inventory.Initialize)
		api.POST("/products/:id/inventory/adjust", h.Inventory.Adjust)
		api.POST("/products/:id/inventory/maintenance", h.Inventory.Maintenance)
		api.GET("/products/:id/inventory/movements", h.Inventory.Movements)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
