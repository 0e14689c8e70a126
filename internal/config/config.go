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

type Config struct {
	Env   string
	Port  int
	DBURL string

	DBAutoMigrate bool

	// Session. Tokens and cookies always live auth.DefaultTTL.
	JWTSecret    string
	CookieSecure bool
	LoginPath    string

	UserCacheTTL   time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string

	// Profile image storage (S3 or MinIO)
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	OTelEndpoint    string
	OTelServiceName string

	SeedUserEmail    string
	SeedUserPassword string
}

// Load reads the process configuration once at start-up. Values from a local
// .env file are used when the environment does not set them.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),
		LoginPath:    getEnv("LOGIN_PATH", "/login"),

		UserCacheTTL:   getEnvDuration("USER_CACHE_TTL", 5*time.Second),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", "authhub-profiles"),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "authhub-api"),

		SeedUserEmail:    getEnv("SEED_USER_EMAIL", ""),
		SeedUserPassword: getEnv("SEED_USER_PASSWORD", ""),
	}
}

// Validate rejects settings the server cannot run safely with.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" && c.Env != "test" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if c.Env == "prod" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in prod"))
	}

	if !strings.HasPrefix(c.LoginPath, "/") {
		errs = append(errs, fmt.Errorf("LOGIN_PATH must be an absolute path, got %q", c.LoginPath))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authhub")
	pass := getEnv("DB_PASSWORD", "authhub")
	name := getEnv("DB_NAME", "authhub")
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string

	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
