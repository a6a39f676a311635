package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用全部配置，先读 YAML 文件，再用环境变量覆盖
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Match    MatchConfig    `yaml:"match"`
	Cache    CacheConfig    `yaml:"cache"`
	NATS     NATSConfig     `yaml:"nats"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	S3       S3Config       `yaml:"s3"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Env             string        `yaml:"env"` // development, production
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig 数据库连接与连接池
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres, mysql, sqlite
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	LogLevel        string        `yaml:"log_level"` // silent, error, warn, info
	ConnectRetries  int           `yaml:"connect_retries"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// MatchConfig 免费计划的匹配上限
type MatchConfig struct {
	FreePlanLimit int `yaml:"free_plan_limit"`
}

type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled SMTP 配置是否完整
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.User != "" && c.Password != "" && c.From != ""
}

type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UsePathStyle  bool   `yaml:"use_path_style"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Enabled 是否配置了对象存储
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultJWTSecret 仅用于本地开发，production 下启动会被拒绝
const DefaultJWTSecret = "secret_key_change_me"

// Default 返回本地开发可直接使用的默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Env:             "development",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			DSN:             "host=localhost user=postgres password=postgres dbname=supermock port=5432 sslmode=disable TimeZone=UTC",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "warn",
			ConnectRetries:  5,
		},
		JWT: JWTConfig{
			Secret: DefaultJWTSecret,
			TTL:    24 * time.Hour,
		},
		Match: MatchConfig{FreePlanLimit: 3},
		Cache: CacheConfig{Size: 500, TTL: 30 * time.Second},
		SMTP:  SMTPConfig{Port: 587},
		Log:   LogConfig{Level: "info"},
	}
}

// Load 读取配置。path 为空或文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "APP_ENV")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Database.LogLevel, "DATABASE_LOG_LEVEL")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.User, "SMTP_USER")
	setString(&c.SMTP.Password, "SMTP_PASS")
	setString(&c.SMTP.From, "SMTP_FROM")
	setString(&c.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.S3.Region, "AWS_REGION")
	setString(&c.S3.Bucket, "S3_BUCKET_NAME")
	setString(&c.S3.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.S3.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		c.S3.UsePathStyle = v == "true"
	}
	if err := setInt(&c.SMTP.Port, "SMTP_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Match.FreePlanLimit, "FREE_PLAN_MATCH_LIMIT"); err != nil {
		return err
	}
	if err := setDuration(&c.JWT.TTL, "JWT_TTL"); err != nil {
		return err
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.IsProduction() && c.JWT.Secret == DefaultJWTSecret {
		return errors.New("jwt secret must be set in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.Match.FreePlanLimit < 0 {
		return errors.New("free plan match limit must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
