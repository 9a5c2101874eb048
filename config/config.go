package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	AWS          AWSConfig
	Credential   CredentialConfig
	Notification NotificationConfig
	Reminder     ReminderConfig
	RateLimit    RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicBaseURL      string // prefix for scan links shown to members, e.g. https://seminars.example.com
	TimeZone           string // IANA zone deciding which calendar day a session falls on
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/seminars?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	// ConnectAttempts is how many times startup pings the database before giving up.
	ConnectAttempts int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the bucket used for attendance exports.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// CredentialConfig controls check-in credential issuance.
type CredentialConfig struct {
	TTL time.Duration
}

// NotificationConfig controls fan-out delivery.
type NotificationConfig struct {
	// Queue routes notifications through the Redis job queue when true; otherwise they are
	// written straight to the inbox table by the API process.
	Queue   bool
	Timeout time.Duration
}

// ReminderConfig controls the periodic session reminder sweep run by the worker.
type ReminderConfig struct {
	Cron string
	Lead time.Duration
}

// RateLimitConfig bounds credential verification attempts per client.
type RateLimitConfig struct {
	VerifyLimit  int
	VerifyWindow time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
			TimeZone:           getEnv("APP_TIMEZONE", "UTC"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "seminars"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 0),
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", "seminar-exports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Credential: CredentialConfig{
			TTL: time.Duration(getEnvInt("CREDENTIAL_TTL_MINUTES", 10)) * time.Minute,
		},
		Notification: NotificationConfig{
			Queue:   getEnvBool("NOTIFICATION_QUEUE", true),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_TIMEOUT_SEC", 10)) * time.Second,
		},
		Reminder: ReminderConfig{
			Cron: getEnv("REMINDER_CRON", "@every 5m"),
			Lead: time.Duration(getEnvInt("REMINDER_LEAD_MINUTES", 60)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			VerifyLimit:  getEnvInt("VERIFY_RATE_LIMIT", 20),
			VerifyWindow: time.Duration(getEnvInt("VERIFY_RATE_WINDOW_SEC", 60)) * time.Second,
		},
	}
	if cfg.Credential.TTL <= 0 {
		return nil, fmt.Errorf("CREDENTIAL_TTL_MINUTES must be positive")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
