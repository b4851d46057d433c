package http

import (
	"net/http"

	"github.com/sm8ta/webike_registry/internal/adapter/logger"
	"github.com/sm8ta/webike_registry/internal/config"
	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const defaultAllowedOrigin = "http://localhost:3000"

type Router struct {
	router *gin.Engine
}

func NewRouter(
	cfg *config.HTTP,
	zapLogger *zap.Logger,
	tokenService ports.TokenService,
	bikeHandler *BikeHandler,
	transferHandler *TransferHandler,
	profileHandler *ProfileHandler,
	adminHandler *AdminHandler,
	rideHandler *RideHandler,
	contentHandler *ContentHandler,
	analyticsHandler *AnalyticsHandler,
) (*Router, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logger.RequestID(), logger.GinMiddleware(zapLogger), logger.Recovery(zapLogger))

	// CORS
	origins := cfg.Origins()
	if len(origins) == 0 {
		origins = []string{defaultAllowedOrigin}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logger.RequestIDHeader},
		AllowCredentials: true,
	}))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	public := router.Group("/public")
	public.Use(OptionalAuth(tokenService))
	{
		public.GET("/bikes/serial/:serial", bikeHandler.GetPublicBikeBySerial)
		public.GET("/rides", rideHandler.GetUpcomingRides)
		public.GET("/content/homepage", contentHandler.GetHomepageContent)
	}

	// Profile routes
	me := router.Group("/me")
	me.Use(AuthMiddleware(tokenService))
	{
		me.POST("", profileHandler.Register)
		me.GET("", profileHandler.GetProfile)
		me.PUT("", profileHandler.UpdateProfile)
	}

	// Bikes routes
	bikes := router.Group("/bikes")
	bikes.Use(AuthMiddleware(tokenService))
	{
		bikes.POST("", bikeHandler.CreateBike)
		bikes.GET("/my", bikeHandler.GetMyBikes)
		bikes.GET("/:id", bikeHandler.GetBike)
		bikes.PUT("/:id", bikeHandler.UpdateBike)
		bikes.POST("/:id/photos/upload-url", bikeHandler.PhotoUploadURL)
		bikes.POST("/:id/report-stolen", bikeHandler.ReportStolen)
		bikes.POST("/:id/recover", bikeHandler.MarkRecovered)
	}

	// Transfers routes
	transfers := router.Group("/transfers")
	transfers.Use(AuthMiddleware(tokenService))
	{
		transfers.POST("", transferHandler.InitiateTransfer)
		transfers.GET("", transferHandler.GetUserTransfers)
		transfers.POST("/:id/respond", transferHandler.RespondToTransfer)
	}

	// Rides routes
	rides := router.Group("/rides")
	rides.Use(AuthMiddleware(tokenService))
	{
		rides.POST("", rideHandler.CreateOrUpdateRide)
		rides.GET("/mine", rideHandler.GetMyRides)
		rides.DELETE("/:id", rideHandler.DeleteRide)
	}

	// Shop routes
	shop := router.Group("/shop")
	shop.Use(AuthMiddleware(tokenService), RequireRoles(domain.BikeShop))
	{
		shop.POST("/customers", profileHandler.OnboardCustomer)
	}

	// Analytics routes
	analytics := router.Group("/analytics")
	analytics.Use(AuthMiddleware(tokenService), RequireRoles(domain.BikeShop, domain.NGO, domain.Admin))
	{
		analytics.GET("", analyticsHandler.GetAttributionStats)
	}

	// Content routes
	content := router.Group("/content")
	content.Use(AuthMiddleware(tokenService), RequireRoles(domain.Admin))
	{
		content.PUT("/homepage", contentHandler.UpdateHomepageContent)
		content.POST("/homepage/upload-url", contentHandler.HeroImageUploadURL)
	}

	// Admin routes
	admin := router.Group("/admin")
	admin.Use(AuthMiddleware(tokenService), RequireRoles(domain.Admin))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		admin.DELETE("/users/:id", adminHandler.DeleteUserAccount)
		admin.POST("/accounts/bikeshop", adminHandler.CreateBikeShopAccount)
		admin.POST("/accounts/ngo", adminHandler.CreateNgoAccount)
	}

	return &Router{router: router}, nil
}

func (r *Router) Engine() *gin.Engine {
	return r.router
}
