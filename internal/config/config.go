package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr  string
	Debug bool

	CatalogURL string
	EmailURL   string
	RequestURL string
	SheetsRPS  float64
	// SheetsTimeout is the transport timeout for sheet calls; there is no
	// other deadline on upstream work.
	SheetsTimeout time.Duration

	VerificationSecret string
	VerificationTTL    time.Duration

	CartDBPath string
	DBDSN      string

	CORSOrigins    []string
	EnableHSTS     bool
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// LoadEnvFiles reads .env and .env.local without overriding variables the
// runtime already provides.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration from the environment.
func Load() (*Config, error) {
	sheetsURL := getEnv("SHEETS_URL", "")
	cfg := &Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		Debug:              getEnv("DEBUG", "false") == "true",
		CatalogURL:         getEnv("SHEETS_CATALOG_URL", sheetsURL),
		EmailURL:           getEnv("SHEETS_EMAIL_URL", sheetsURL),
		RequestURL:         getEnv("SHEETS_REQUEST_URL", sheetsURL),
		VerificationSecret: os.Getenv("VERIFICATION_SECRET"),
		CartDBPath:         getEnv("CART_DB_PATH", "cart.db"),
		DBDSN:              os.Getenv("DB_DSN"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		EnableHSTS:         getEnv("ENABLE_HSTS", "false") == "true",
	}

	var err error
	if cfg.SheetsRPS, err = getFloat("SHEETS_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.SheetsTimeout, err = getDuration("SHEETS_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = getDuration("VERIFICATION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}
	burst, err := getFloat("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitBurst = int(burst)
	maxBody, err := getFloat("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	if cfg.VerificationSecret == "" {
		return nil, errors.New("missing required environment variable: VERIFICATION_SECRET")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
