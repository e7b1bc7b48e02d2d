package server

import (
	"net/http"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/handlers"
	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/bhojansetu/bhojansetu/internal/middleware"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Log        *zap.Logger
	Metrics    *metrics.Manager
	Limiter    *middleware.IPRateLimiter
	ClientURLs []string
}

func NewRouter(svc *middleware.Services, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(opts.Log), middleware.RequestLogger(opts.Log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	if len(opts.ClientURLs) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.ClientURLs,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "BhojanSetu API is running"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	setupRoutes(r, svc, opts)
	return r
}

func setupRoutes(r *gin.Engine, svc *middleware.Services, opts RouterOptions) {
	r.Use(middleware.ServicesMiddleware(svc))

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if opts.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{opts.Limiter.Handler(), h}
	}

	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", limited(handlers.Register)...)
			auth.POST("/login", limited(handlers.Login)...)
			auth.POST("/verify-email", limited(handlers.VerifyEmail)...)
			auth.POST("/resend-otp", limited(handlers.ResendOTP)...)
		}
		public.POST("/contact", limited(handlers.SubmitContact)...)
		public.GET("/ws", handlers.ChatSocket(handlers.NewUpgrader(opts.ClientURLs)))
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		profile := protected.Group("/auth")
		{
			profile.GET("/profile", handlers.GetProfile)
			profile.PUT("/profile", handlers.UpdateProfile)

			admin := profile.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
			admin.GET("/users", handlers.ListUsers)
			admin.PUT("/verify-user/:id", handlers.VerifyUser)
			admin.GET("/stats", handlers.GetStats)
		}

		donations := protected.Group("/donations")
		{
			ngoOrAdmin := middleware.RequireRoles(models.RoleNGO, models.RoleAdmin)

			donations.POST("/create", middleware.RequireRoles(models.RoleDonor), handlers.CreateDonation)
			donations.GET("", ngoOrAdmin, handlers.ListDonationsForNGO)
			donations.GET("/my-donations", middleware.RequireRoles(models.RoleDonor, models.RoleAdmin), handlers.ListMyDonations)
			donations.DELETE("/history", ngoOrAdmin, handlers.ClearDonationHistory)
			donations.GET("/:id", handlers.GetDonation)
			donations.PUT("/assign/:id", ngoOrAdmin, handlers.AcceptDonation)
			donations.POST("/send-otp/:id", ngoOrAdmin, handlers.SendPickupOTP)
			donations.PUT("/status/:id", ngoOrAdmin, handlers.UpdateDonationStatus)
		}

		messages := protected.Group("/messages")
		{
			messages.GET("/:donationId", handlers.ListMessages)
			messages.POST("", handlers.SendMessage)
			messages.DELETE("/:donationId", handlers.ClearMessages)
		}
	}
}
