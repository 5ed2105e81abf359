package main

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/db"
	"github.com/incidentdesk/incidentdesk/internal/config"
	"github.com/incidentdesk/incidentdesk/internal/identity"
	"github.com/incidentdesk/incidentdesk/internal/models"
	"github.com/incidentdesk/incidentdesk/internal/router"
	"github.com/incidentdesk/incidentdesk/internal/storage"
	"github.com/incidentdesk/incidentdesk/internal/sweeper"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

// Initialization order: env file, config, database, object store, admin
// bootstrap, sweeper, router.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.ConnectDatabase(cfg.DatabaseDSN)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store, err := storage.NewMinioStore(cfg.Storage)

	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}

	if err := store.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to ensure storage bucket: %v", err)
	}

	if err := bootstrapAdmin(database, cfg); err != nil {
		log.Fatalf("Failed to bootstrap admin account: %v", err)
	}

	janitor := sweeper.New(database, store)
	janitor.Start()
	defer janitor.Stop()

	r := router.NewRouter(cfg, database, store)

	log.Printf("Listening on :%s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// bootstrapAdmin seeds an admin account on first boot when one is
// configured. Without it a fresh deployment has no way to log in.
func bootstrapAdmin(database *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapAdminPassword == "" {
		return nil
	}

	username := cfg.BootstrapAdminUsername

	if username == "" {
		username = "admin"
	}

	var existing models.User

	err := database.Where("role = ?", types.RoleAdmin).First(&existing).Error

	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := identity.HashPassword(cfg.BootstrapAdminPassword)

	if err != nil {
		return err
	}

	admin := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         types.RoleAdmin,
		IsActive:     true,
	}

	if err := database.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Bootstrapped admin account %q", username)
	return nil
}
