package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Auth       AuthConfig
	Usage      UsageConfig
	Generation GenerationConfig
	RateLimit  RateLimitConfig
}

type AuthConfig struct {
	JWTSecret    string
	JWTIssuer    string
	APIKeyHeader string
	// InternalToken guards billing-sync endpoints; empty disables them.
	InternalToken string
}

type UsageConfig struct {
	FreeTierLimit int64
}

type GenerationConfig struct {
	Provider        string
	ProviderToken   string
	ProviderBaseURL string
	Timeout         time.Duration
	PollInterval    time.Duration
	FileOutput      bool
	ProfilesPath    string
	StaticAudioURL  string
	StaticVideoURL  string
}

type RateLimitConfig struct {
	Enabled         bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GenerationRate  float64
	GenerationBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "genstudio"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       getenvInt64("SNOWFLAKE_NODE_ID", 1),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "genstudio"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Auth: AuthConfig{
			JWTSecret:    strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
			JWTIssuer:    strings.TrimSpace(getenv("AUTH_JWT_ISSUER", "")),
			APIKeyHeader: getenv("AUTH_API_KEY_HEADER", "X-API-Key"),

			InternalToken: strings.TrimSpace(getenv("INTERNAL_API_TOKEN", "")),
		},
		Usage: UsageConfig{
			FreeTierLimit: getenvInt64("FREE_TIER_LIMIT", 5),
		},
		Generation: GenerationConfig{
			Provider:        strings.ToLower(getenv("GENERATION_PROVIDER", "replicate")),
			ProviderToken:   strings.TrimSpace(getenv("REPLICATE_API_TOKEN", "")),
			ProviderBaseURL: strings.TrimSpace(getenv("REPLICATE_BASE_URL", "https://api.replicate.com")),
			Timeout:         getenvDuration("GENERATION_TIMEOUT", 5*time.Minute),
			PollInterval:    getenvDuration("GENERATION_POLL_INTERVAL", time.Second),
			FileOutput:      getenvBool("GENERATION_FILE_OUTPUT", true),
			ProfilesPath:    strings.TrimSpace(getenv("GENERATION_PROFILES_PATH", "")),
			StaticAudioURL:  strings.TrimSpace(getenv("STATIC_AUDIO_URL", "")),
			StaticVideoURL:  strings.TrimSpace(getenv("STATIC_VIDEO_URL", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:       strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword:   getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:         getenvInt("RATE_LIMIT_REDIS_DB", 0),
			GenerationRate:  getenvFloat("RATE_LIMIT_GENERATION_RATE", 0.2),
			GenerationBurst: getenvInt("RATE_LIMIT_GENERATION_BURST", 3),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
