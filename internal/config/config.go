package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "vendorhub-dev-secret"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	Env                string
	CORSAllowedOrigins []string
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// SMTPConfig holds outbound mail settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AdminConfig describes the admin account seeded at startup. Seeding is
// skipped unless both Email and Password are set.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

// Config holds all configuration.
type Config struct {
	Server       ServerConfig
	DatabasePath string
	JWT          JWTConfig
	BcryptCost   int
	SMTP         SMTPConfig
	Admin        AdminConfig
	LogLevel     slog.Level
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"https://vendor-admin-theta.vercel.app",
				"http://localhost:3000",
			}),
		},
		DatabasePath: getEnv("DATABASE_PATH", "vendorhub.db"),
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvAsDuration("JWT_TTL", time.Hour),
		},
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@vendorhub.local"),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Vendor Admin"),
			Email:    strings.ToLower(getEnv("ADMIN_EMAIL", "")),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		LogLevel: getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.JWT.Secret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.JWT.TTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWT.TTL)
	}

	return cfg, nil
}

// LogAttrs returns the non-secret settings for a startup log line.
func (c *Config) LogAttrs() []any {
	return []any{
		"env", c.Server.Env,
		"port", c.Server.Port,
		"database", c.DatabasePath,
		"jwt_ttl", c.JWT.TTL.String(),
		"smtp_enabled", c.SMTP.Host != "",
		"cors_origins", c.Server.CORSAllowedOrigins,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	switch strings.ToLower(getEnv(key, "")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultValue
	}
}
