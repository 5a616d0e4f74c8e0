package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once in main and handed to whatever needs it.
// Nothing in the process reads the environment after Load returns.
type Config struct {
	Env  string
	Port int

	DBURL string

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail    string
	AdminPassword string
	AdminUsername string

	AllowedOrigins []string

	// Tables the dashboard may serve through /api/fetch_table.
	DashboardTables []string

	OTLPEndpoint string
}

func Load() (Config, error) {
	secret := getEnv("JWT_SECRET", "")

	if secret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	ttlMinutes := getEnvInt("JWT_TTL_MINUTES", 120)

	cfg := Config{
		Env:             getEnv("APP_ENV", "dev"),
		Port:            getEnvInt("PORT", 4000),
		DBURL:           buildDBURL(),
		JWTSecret:       secret,
		TokenTTL:        time.Duration(ttlMinutes) * time.Minute,
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DashboardTables: getEnvList("DASHBOARD_TABLES", []string{"customers", "companies", "stock_prices"}),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
	}

	return cfg, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "marketdash")
	pass := getEnv("DB_PASSWORD", "marketdash")
	name := getEnv("DB_NAME", "marketdash")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)

	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}

	return out
}
