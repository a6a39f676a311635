package main

import (
	"context"
	"log"
	"os"

	"supermock/internal/config"
	"supermock/internal/db"
	"supermock/internal/logger"
	"supermock/internal/services"

	"github.com/joho/godotenv"
)

// 创建或重置管理员账号：
//
//	ADMIN_EMAIL=admin@supermock.com ADMIN_PASSWORD=... go run ./cmd/create-admin
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(envOr("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Env, cfg.Log.Level)

	conn := db.Init(cfg.Database)
	defer db.Close(conn)

	users := services.NewUserService(conn)
	email := envOr("ADMIN_EMAIL", "admin@supermock.com")
	password := envOr("ADMIN_PASSWORD", "admin123")
	name := envOr("ADMIN_NAME", "Admin")

	user, created, err := users.EnsureAdmin(context.Background(), email, password, name)
	if err != nil {
		logger.Fatal("Failed to create admin", "email", email, "error", err)
	}
	if created {
		logger.Info("Admin user created", "email", user.Email, "id", user.ID)
	} else {
		logger.Info("Existing user promoted to admin", "email", user.Email, "id", user.ID)
	}
	if password == "admin123" {
		logger.Warn("Admin is using the default password, change it after first login")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
