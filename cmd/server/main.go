package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"supermock/internal/auth"
	"supermock/internal/config"
	"supermock/internal/db"
	"supermock/internal/events"
	"supermock/internal/logger"
	"supermock/internal/metrics"
	"supermock/internal/router"
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Env, cfg.Log.Level)

	// Initialize Database
	conn := db.Init(cfg.Database)
	defer db.Close(conn)

	publisher, err := events.NewPublisher(cfg.NATS.URL)
	if err != nil {
		// 事件不是核心流程，连不上 NATS 时降级
		logger.Warn("NATS unavailable, events disabled", "error", err)
		publisher = events.NoopPublisher{}
	}
	defer publisher.Close()

	avatars, err := services.NewAvatarUploader(context.Background(), cfg.S3)
	if err != nil {
		logger.Fatal("Failed to init avatar storage", "error", err)
	}

	reg, err := services.NewRegistry(services.Deps{
		DB:        conn,
		Config:    cfg,
		Publisher: publisher,
		Avatars:   avatars,
	})
	if err != nil {
		logger.Fatal("Failed to init services", "error", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Setup()

	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(), metrics.Middleware())
	router.RegisterRoutes(r, reg, auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Supermock server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := reg.Mail.Wait(ctx); err != nil {
		logger.Warn("Pending emails not delivered before shutdown", "error", err)
	}
	logger.Info("Server exited")
}
