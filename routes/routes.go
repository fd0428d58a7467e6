package routes

import (
	"net/http"
	"time"

	"lokals/handlers"
	"lokals/middleware"
	"lokals/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the client-facing booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.ActorMiddleware(""))
		api.POST("", hb.CreateBookingHandler)
		api.GET("/:id", hb.GetBookingHandler)
		api.POST("/:id/cancel", hb.CancelBookingHandler)
		api.POST("/:id/pay", hb.PayBookingHandler)
		api.GET("/:id/events", hb.BookingEventsHandler)

		// OTP gate: the provider submits, the client can reissue.
		api.POST("/:id/verify", hb.VerifyOTPHandler)
		api.POST("/:id/otp", hb.ReissueOTPHandler)
	}
}

// RegisterProviderRoutes sets up the provider-side endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/provider")
	{
		api.Use(middleware.ActorMiddleware(models.RoleProvider))
		api.POST("/register", hb.RegisterProviderHandler)
		api.POST("/active", hb.SetActiveHandler)
		api.GET("/requests", hb.PendingRequestsHandler)
		api.POST("/location", hb.LocationPingHandler)

		api.POST("/bookings/:id/accept", hb.AcceptBookingHandler)
		api.POST("/bookings/:id/decline", hb.DeclineBookingHandler)
		api.POST("/bookings/:id/enroute", hb.EnRouteHandler)
		api.POST("/bookings/:id/complete", hb.CompleteBookingHandler)
	}
}

// RegisterQuoteRoutes sets up the standalone pricing endpoints.
func RegisterQuoteRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/quotes")
	{
		api.POST("/preview", hb.QuotePreviewHandler)
		api.POST("/checklist", hb.ChecklistHandler)
		api.GET("/categories", hb.CategoriesHandler)
	}
}

// RegisterDeviceRoutes sets up push-token registration.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.ActorMiddleware(""))
		api.POST("/register", hb.RegisterDeviceHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Idempotency-Key", "X-Actor-ID", "X-Actor-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterQuoteRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
}
