package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "The default secret key"

type Config struct {
	Env  string
	Port int

	// StoreBackend is "mongo" or "memory"; memory keeps nothing across restarts.
	StoreBackend string
	MongoURI     string
	MongoDB      string

	JWTSecret   string
	JWTTTLHours int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ExposeErrorDetails adds the internal error text to 5xx/4xx bodies.
	ExposeErrorDetails bool

	CORSOrigins      []string
	OTelEndpoint     string
	TraceSampleRatio float64

	AdminEmail    string
	AdminUsername string
	AdminFullname string
	AdminPassword string

	RateLimitPerMinute int
	FilterCacheTTL     time.Duration
	FilterCacheSize    int
}

func Load() Config {
	// a missing .env is fine, the real environment wins anyway
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:  env,
		Port: getEnvInt("PORT", 4000),

		StoreBackend: getEnv("STORE_BACKEND", "mongo"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:      getEnv("MONGO_DB", "coursehub"),

		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ExposeErrorDetails: getEnvBool("EXPOSE_ERROR_DETAILS", env == "dev"),

		CORSOrigins:      getEnvList("CORS_ORIGINS"),
		OTelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminFullname: getEnv("ADMIN_FULLNAME", "Administrator"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		FilterCacheTTL:     time.Duration(getEnvInt("FILTER_CACHE_TTL_SECONDS", 5)) * time.Second,
		FilterCacheSize:    getEnvInt("FILTER_CACHE_SIZE", 512),
	}
}

// Validate refuses configurations that are only acceptable on a laptop.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	switch c.StoreBackend {
	case "", "mongo", "memory":
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	if c.StoreBackend == "memory" && c.Env == "prod" {
		return errors.New("STORE_BACKEND=memory is not allowed in prod")
	}

	if c.JWTTTLHours <= 0 {
		return errors.New("JWT_TTL_HOURS must be positive")
	}

	if c.Env != "dev" && c.Env != "test" {
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set outside dev")
		}
	}

	return nil
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
