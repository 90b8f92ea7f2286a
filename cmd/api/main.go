package main

import (
	"log"

	_ "portal/api/swagger" // swagger docs
	"portal/internal/app"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/logger"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Portal Billing API
// @version         1.0
// @description     Time tracking, invoicing and reporting for the consulting portal.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: !cfg.IsRelease(),
	})
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.NewConnection(cfg.DatabaseURI, zl)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}

	a := app.New(cfg, db, zl)
	router := a.Router()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	zl.Info("server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}
}
