package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds application settings. It is read from the environment once at startup and
// treated as immutable afterwards.
type Config struct {
	// Server
	Port string
	Env  string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Redis token revocation; empty RedisAddr disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Uploads
	UploadDir          string
	UploadMaxBytes     int64
	UploadSniffContent bool

	// HTTP
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Workers
	OrphanSweepInterval time.Duration
	OrphanGracePeriod   time.Duration

	// Seed admin
	SeedAdminName     string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads Config from the environment. It fails when a required variable is missing.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.MongoURI = os.Getenv("MONGODB_URI")
	if cfg.MongoURI == "" {
		missing = append(missing, "MONGODB_URI")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("PORT", "5000")
	cfg.Env = getEnvString("APP_ENV", EnvProduction)
	cfg.MongoDatabase = getEnvString("MONGODB_DATABASE", "pixelforge")
	cfg.JWTExpiresIn = getEnvDuration("JWT_EXPIRES_IN", 7*24*time.Hour)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 5*1024*1024)
	cfg.UploadSniffContent = getEnvBool("UPLOAD_SNIFF_CONTENT", false)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", []string{"*"})
	cfg.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 100)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	cfg.OrphanSweepInterval = getEnvDuration("ORPHAN_SWEEP_INTERVAL", 0)
	cfg.OrphanGracePeriod = getEnvDuration("ORPHAN_GRACE_PERIOD", time.Hour)
	cfg.SeedAdminName = getEnvString("SEED_ADMIN_NAME", "System Administrator")
	cfg.SeedAdminEmail = getEnvString("SEED_ADMIN_EMAIL", "admin@pixelforge.com")
	cfg.SeedAdminPassword = getEnvString("SEED_ADMIN_PASSWORD", "Admin@123")

	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", cfg.UploadMaxBytes)
	}
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
