package routes

import (
	"net/http"
	"time"

	"parkly/handlers"
	"parkly/middleware"
	"parkly/models"
	"parkly/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle collects the wired handlers routing needs.
type HandlerBundle struct {
	Booking  *handlers.BookingHandler
	Location *handlers.LocationHandler
	Wallet   *handlers.WalletHandler
	Resolver *handlers.ResolverHandler
	Catalog  *handlers.CatalogHandler
	Device   *handlers.DeviceHandler
}

// RegisterBookingRoutes sets up the endpoints of the booking lifecycle engine.
func RegisterBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Booking.Create)
		api.GET("", hb.Booking.List)
		api.GET("/:id", hb.Booking.Get)
		api.POST("/:id/accept", hb.Booking.Accept)
		api.POST("/:id/reject", hb.Booking.Reject)
		api.POST("/:id/cancel", hb.Booking.Cancel)
		api.POST("/:id/checkin", hb.Booking.CheckIn)
		api.POST("/:id/checkout", hb.Booking.CheckOut)
		api.POST("/:id/location", hb.Location.Update)
	}
}

// RegisterWalletRoutes sets up the wallet endpoints.
func RegisterWalletRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/wallet")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.Wallet.Balance)
		api.POST("/topup", hb.Wallet.TopUp)
		api.GET("/transactions", hb.Wallet.Transactions)
	}
}

// RegisterResolverRoutes sets up the expiration resolver endpoints. Only
// landlords and admins reach them.
func RegisterResolverRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/resolver")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.Use(middleware.RequireRole(models.RoleLandlord, models.RoleAdmin))
		api.GET("/bookings/:id", hb.Resolver.Analyze)
		api.POST("/bookings/:id", hb.Resolver.Execute)
	}
}

// RegisterCatalogRoutes sets up space, vehicle, and tariff management.
func RegisterCatalogRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/catalog")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/spaces", middleware.RequireRole(models.RoleLandlord, models.RoleAdmin), hb.Catalog.UpsertSpace)
		api.PUT("/vehicles", middleware.RequireRole(models.RoleDriver, models.RoleAdmin), hb.Catalog.UpsertVehicle)
		api.PUT("/tariffs", middleware.RequireRole(models.RoleLandlord, models.RoleAdmin), hb.Catalog.UpsertTariff)
	}
}

// RegisterDeviceRoutes sets up push-token registration.
func RegisterDeviceRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/token", hb.Device.RegisterToken)
	}
}

// RegisterAuthRoutes sets up token issuance.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/api/auth/token", handlers.IssueToken)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"message":      "Hi, I'm Parkly",
			"dependencies": utils.GetHealthStatus(),
		})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAuthRoutes(r)
	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterWalletRoutes(r, hb)
	RegisterResolverRoutes(r, hb)
	RegisterCatalogRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
}
