package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/attachments"
	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/config"
	"github.com/incidentdesk/incidentdesk/internal/handlers"
	"github.com/incidentdesk/incidentdesk/internal/identity"
	"github.com/incidentdesk/incidentdesk/internal/incidents"
	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/storage"
	"github.com/incidentdesk/incidentdesk/internal/users"
)

// NewRouter wires the whole request path. Everything is constructed here
// from the startup config; nothing reaches for process globals afterwards.
func NewRouter(cfg *config.Config, db *gorm.DB, store storage.ObjectStore) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	verifier := identity.NewDBVerifier(db)
	manager := attachments.NewManager(store)
	engine := incidents.NewEngine(db, manager)
	userService := users.NewService(db)
	feed := handlers.NewFeed(cfg.AllowedOrigins)

	authHandler := handlers.NewAuthHandler(verifier, tokens)
	incidentHandler := handlers.NewIncidentHandler(engine, feed)
	userHandler := handlers.NewUserHandler(userService)

	authenticated := middleware.AuthMiddleware(tokens, db)

	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/api")
	{
		api.GET("/ws/incidents", authenticated, feed.Subscribe)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", authenticated, authHandler.Me)
		}

		incidentRoutes := api.Group("/incidents", authenticated)
		{
			incidentRoutes.POST("", incidentHandler.CreateIncident)
			incidentRoutes.GET("", incidentHandler.ListIncidents)
			incidentRoutes.GET("/:id", incidentHandler.GetIncident)
			incidentRoutes.POST("/:id/acknowledge", incidentHandler.AcknowledgeIncident)
			incidentRoutes.PATCH("/:id/status", incidentHandler.UpdateIncidentStatus)
			incidentRoutes.DELETE("/:id", incidentHandler.DeleteIncident)
		}

		userRoutes := api.Group("/users", authenticated)
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.ListUsers)
			userRoutes.GET("/:id", userHandler.GetUser)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.PATCH("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return r
}
