// Package config loads application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// DatabaseURL wins over the DB_* parts when set.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// RabbitURL is optional; without it booking events stay in-process.
	RabbitURL string

	LogLevel    string
	CORSOrigins []string

	AdminEmail        string
	AdminPasswordHash string
	SessionTTL        time.Duration

	AppIDPrefix string

	Mail Mail
}

// Mail configures the hosted email relay. An empty Endpoint disables sending.
type Mail struct {
	Endpoint          string
	ServiceID         string
	PublicKey         string
	TemplateSubmitted string
	TemplateApproved  string
	TemplateRejected  string
	TemplateCancelled string
}

// Load reads envFile if it exists (variables already set in the process
// environment take precedence), then builds a Config. Every missing required
// variable is named in the returned error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	cfg := Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "guesthouse"),
		RabbitURL:         os.Getenv("RABBITMQ_URL"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AppIDPrefix:       getEnv("APP_ID_PREFIX", "HPU"),
		Mail: Mail{
			Endpoint:          os.Getenv("MAIL_ENDPOINT"),
			ServiceID:         os.Getenv("MAIL_SERVICE_ID"),
			PublicKey:         os.Getenv("MAIL_PUBLIC_KEY"),
			TemplateSubmitted: os.Getenv("MAIL_TEMPLATE_SUBMITTED"),
			TemplateApproved:  os.Getenv("MAIL_TEMPLATE_APPROVED"),
			TemplateRejected:  os.Getenv("MAIL_TEMPLATE_REJECTED"),
			TemplateCancelled: os.Getenv("MAIL_TEMPLATE_CANCELLED"),
		},
	}

	var missing []string
	if cfg.DatabaseURL == "" && cfg.DBPassword == "" {
		missing = append(missing, "DB_PASSWORD (or DATABASE_URL)")
	}
	if cfg.AdminEmail == "" {
		missing = append(missing, "ADMIN_EMAIL")
	}
	if cfg.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("config: SESSION_TTL must be a positive duration, got %q", os.Getenv("SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	if cfg.Mail.Endpoint != "" && (cfg.Mail.ServiceID == "" || cfg.Mail.PublicKey == "") {
		return Config{}, fmt.Errorf("config: MAIL_ENDPOINT requires MAIL_SERVICE_ID and MAIL_PUBLIC_KEY")
	}

	return cfg, nil
}

// DSN returns a postgres connection string for gorm.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
