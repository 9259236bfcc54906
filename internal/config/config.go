package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once in main and handed to every constructor.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DatabaseURL       string
	DBAutoMigrate     bool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBQueryTimeout    time.Duration

	RedisAddr     string
	RedisDB       int
	IdempTTL      time.Duration
	StatsCacheTTL time.Duration

	BodyLimit       string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env ignored: %v", err)
	}

	return &Config{
		AppEnv:   getenv("APP_ENV", "development"),
		AppPort:  getenv("PORT", "8080"),
		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),

		DatabaseURL:       getenv("DATABASE_URL", "sqlite://microloans.db"),
		DBAutoMigrate:     getenvBool("DB_AUTO_MIGRATE", true),
		DBMaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 30),
		DBMaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBQueryTimeout:    getenvDuration("DB_QUERY_TIMEOUT", 5*time.Second),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		IdempTTL:      time.Duration(getenvInt("IDEMPOTENCY_TTL_SECONDS", 300)) * time.Second,
		StatsCacheTTL: time.Duration(getenvInt("STATS_CACHE_TTL_SECONDS", 30)) * time.Second,

		BodyLimit:       getenv("BODY_LIMIT", "1M"),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("missing DATABASE_URL")
	}
	if _, err := c.DatabaseDriver(); err != nil {
		return err
	}
	if c.AppPort == "" {
		return errors.New("missing PORT")
	}
	if n, err := strconv.Atoi(c.AppPort); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid PORT %q", c.AppPort)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q (want debug|info|warn|error)", c.LogLevel)
	}
	if c.DBQueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) Addr() string { return ":" + c.AppPort }

func (c *Config) IsProduction() bool { return c.AppEnv == "production" || c.AppEnv == "prod" }

func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// DatabaseDriver reports which gorm dialect DATABASE_URL selects:
// "postgres", "mysql" or "sqlite".
func (c *Config) DatabaseDriver() (string, error) {
	raw := strings.TrimSpace(c.DatabaseURL)
	if strings.HasPrefix(raw, "sqlite:") || strings.HasPrefix(raw, "file:") {
		return "sqlite", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL scheme %q", u.Scheme)
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func getenvDuration(k string, d time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
