package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	MongoURI string
	MongoDB  string

	JWTSecret        string
	JWTExpire        time.Duration
	CookieExpireDays int

	UploadDir      string
	MaxUploadBytes int64

	GeocoderURL string
	GeocoderKey string

	RedisAddr     string
	RedisPassword string

	OTLPEndpoint   string
	AllowedOrigins []string
}

func Load() Config {
	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		MongoURI: getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGO_DB", "campdir"),

		JWTSecret:        getEnv("JWT_SECRET", "dev-only-secret"),
		JWTExpire:        getEnvDuration("JWT_EXPIRE", 30*24*time.Hour),
		CookieExpireDays: getEnvInt("COOKIE_EXPIRE_DAYS", 30),

		UploadDir:      getEnv("FILE_UPLOAD_PATH", "./public/uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_FILE_UPLOAD", 1_000_000)),

		GeocoderURL: getEnv("GEOCODER_URL", "https://geocode.example.com/v1/search"),
		GeocoderKey: getEnv("GEOCODER_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", nil),
	}
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
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
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

	return out
}
