package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/slotbook/internal/container"
	"github.com/joshua-takyi/slotbook/internal/handlers"
	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/middleware"
	"github.com/joshua-takyi/slotbook/internal/payment"
	"github.com/joshua-takyi/slotbook/internal/refresh"
)

const serviceName = "slotbook-api"

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Export-Rows"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	streams := refresh.NewRegistry()

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": serviceName,
				"gateway": container.Gateway.Name(),
			})
		})

		// public routes
		v1.GET("/entities/:id", handlers.GetEntity(container.CatalogService))
		v1.GET("/entities/:id/dates", handlers.AvailableDates(container.CatalogService))
		v1.GET("/entities/:id/slots", handlers.DaySlots(container.CatalogService))
		v1.GET("/entities/:id/slots/stream", handlers.StreamSlots(container.CatalogService, streams, cfg.RefreshInterval, container.Logger))
		v1.POST("/entities/:id/slots/stream/:stream_id/refresh", handlers.RefreshStream(streams))
		v1.POST("/entities/:id/slots/stream/:stream_id/visibility", handlers.StreamVisibility(streams))
		v1.POST("/payments/webhook", handlers.PaymentWebhook(container.BookingService, container.Gateway, container.Logger))

		if mock, ok := container.Gateway.(*payment.MockGateway); ok && !cfg.IsProduction() {
			v1.POST("/payments/mock/:order_id/settle", handlers.MockSettle(container.BookingService, mock, container.Logger))
		}
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.Tokens, container.Supabase, cfg.IsProduction(), container.Logger))
	{
		protected.GET("/profile", func(c *gin.Context) {
			claims, ok := helpers.UserFromContext(c)
			if !ok {
				c.JSON(401, gin.H{"error": "Unauthorized"})
				return
			}
			c.JSON(200, gin.H{
				"status":  "OK",
				"user_id": claims.UserID,
				"email":   claims.Email,
				"role":    claims.GetSafeRole(),
			})
		})

		protected.POST("/entities", handlers.CreateEntity(container.CatalogService))
		protected.PUT("/entities/:id", handlers.UpdateEntity(container.CatalogService))
		protected.GET("/organizers/me/entities", handlers.ListOrganizerEntities(container.CatalogService))
		protected.POST("/entities/:id/orders", handlers.CreateOrder(container.BookingService))
		protected.GET("/orders/:order_id", handlers.GetOrder(container.BookingService))

		protected.GET("/entities/:id/attendees", handlers.ListAttendees(container.DashboardService))
		protected.GET("/entities/:id/stats", handlers.AttendeeStats(container.DashboardService))
		protected.GET("/entities/:id/attendees/export", handlers.ExportAttendees(container.DashboardService))
		protected.PATCH("/bookings/:id/check-in", handlers.CheckIn(container.DashboardService))
	}

	return r
}
