package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	GraphAPIVersion string
	WAPhoneNumberID string
	WAAccessToken   string
	WAVerifyToken   string

	Port        string
	DataDir     string
	CatalogPath string
	SeedEmpty   bool

	LogLevel string
	NATSURL  string

	AdminJWTSecret string
	AdminRateLimit int
}

func Load() (*Config, error) {
	// .env is optional, env vars may already be set (e.g. in production)
	_ = godotenv.Load()

	cfg := &Config{
		GraphAPIVersion: getEnv("GRAPH_API_VERSION", "v20.0"),
		WAPhoneNumberID: os.Getenv("WA_PHONE_NUMBER_ID"),
		WAAccessToken:   os.Getenv("WA_ACCESS_TOKEN"),
		WAVerifyToken:   os.Getenv("WA_VERIFY_TOKEN"),
		Port:            getEnv("PORT", "3000"),
		DataDir:         getEnv("DATA_DIR", "."),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		SeedEmpty:       getBoolEnv("CATALOG_SEED_EMPTY", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		NATSURL:         os.Getenv("NATS_URL"),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		AdminRateLimit:  getIntEnv("ADMIN_RATE_LIMIT", 60),
	}

	cfg.Port = strings.TrimPrefix(cfg.Port, ":")

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.DataDir, "data", "catalog.json")
	}

	for _, req := range []struct {
		name, val string
	}{
		{"WA_PHONE_NUMBER_ID", cfg.WAPhoneNumberID},
		{"WA_ACCESS_TOKEN", cfg.WAAccessToken},
		{"WA_VERIFY_TOKEN", cfg.WAVerifyToken},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("required env var %s is not set", req.name)
		}
	}

	return cfg, nil
}

// LedgerPath is where the bbolt order ledger lives.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "pedidos.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
