package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"supermock/internal/config"
	"supermock/internal/logger"
	"supermock/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Init 连接数据库并迁移表结构，失败直接退出
func Init(cfg config.DatabaseConfig) *gorm.DB {
	conn, err := Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "driver", cfg.Driver, "error", err)
	}
	logger.Info("Database connection established", "driver", cfg.Driver)

	if err := AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database migration completed")

	return conn
}

// Open 按驱动打开连接，带重试和连接池设置
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger:         newLogger(cfg.LogLevel),
		TranslateError: true,
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	retryInterval := 2 * time.Second

	var conn *gorm.DB
	for i := 0; i < retries; i++ {
		conn, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			sqlDB, pingErr := conn.DB()
			if pingErr == nil {
				if err = sqlDB.Ping(); err == nil {
					break
				}
			} else {
				err = pingErr
			}
		}
		if i < retries-1 {
			logger.Warn("Database connect failed, retrying",
				"attempt", i+1, "max", retries, "error", err, "retry_in", retryInterval)
			time.Sleep(retryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d attempts: %w", cfg.Driver, retries, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return conn, nil
}

// AutoMigrate 创建或更新全部表
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Match{},
		&models.Transaction{},
		&models.PurchaseRequest{},
		&models.Notification{},
	)
}

// Close 关闭底层连接
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// newLogger 把配置里的日志级别映射为 gorm 日志
func newLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch level {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "info":
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}

	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
