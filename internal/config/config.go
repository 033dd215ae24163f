package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
	CSRF     CSRFConfig
	AI       AIConfig
	Storage  StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// File enables rotated file output in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret  string
	BcryptCost int
	// Admin is created or promoted at startup when Username is set.
	Admin AdminSeed
}

// AdminSeed describes the operator account ensured by serve.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// SessionConfig controls the login session cookie.
type SessionConfig struct {
	CookieName string
	TTLMinutes int
	Secure     bool
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// CSRFConfig controls request forgery protection.
type CSRFConfig struct {
	Enabled    bool
	CookieName string
	TTLMinutes int
}

// AIConfig configures the reply drafting service.
type AIConfig struct {
	APIKey         string
	Model          string
	Organization   string
	SanitizeOutput bool
}

// StorageConfig selects the attachment backend.
type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver             string
	LocalDir           string
	MaxAttachmentBytes int64
	S3                 S3Config
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTLSec   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 12*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("AUTH_JWT_SECRET", "dev-secret"),
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 12),
			Admin: AdminSeed{
				Username: os.Getenv("ADMIN_USERNAME"),
				Email:    os.Getenv("ADMIN_EMAIL"),
				Password: os.Getenv("ADMIN_PASSWORD"),
			},
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "sessionid"),
			TTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 14*24*60),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		CSRF: CSRFConfig{
			Enabled:    getEnvAsBool("CSRF_ENABLED", true),
			CookieName: getEnv("CSRF_COOKIE_NAME", "csrftoken"),
			TTLMinutes: getEnvAsInt("CSRF_TTL_MINUTES", 60),
		},
		AI: AIConfig{
			APIKey:         os.Getenv("GEMINI_API_KEY"),
			Model:          getEnv("AI_MODEL", "gemini-2.5-flash"),
			Organization:   getEnv("AI_ORGANIZATION", "WeNS Pvt. Ltd."),
			SanitizeOutput: getEnvAsBool("AI_SANITIZE_OUTPUT", true),
		},
		Storage: StorageConfig{
			Driver:             getEnv("STORAGE_DRIVER", "local"),
			LocalDir:           getEnv("STORAGE_LOCAL_DIR", "media"),
			MaxAttachmentBytes: int64(getEnvAsInt("STORAGE_MAX_ATTACHMENT_BYTES", 10*1024*1024)),
			S3: S3Config{
				Endpoint:        os.Getenv("S3_ENDPOINT"),
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          os.Getenv("S3_BUCKET"),
				AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
				PresignTTLSec:   getEnvAsInt("S3_PRESIGN_TTL_SECONDS", 300),
			},
		},
	}

	if cfg.Storage.Driver != "local" && cfg.Storage.Driver != "s3" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
