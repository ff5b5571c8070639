package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool

	OTLPEndpoint string

	Oversight OversightConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBFile            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled     bool
	RateLimitRPS         float64
	RateLimitBurst       int
	RateLimitExportRPS   float64
	RateLimitExportBurst int

	SeedDemoData bool
}

// OversightConfig configures the push of marketplace metrics to the
// regulator's central monitoring stack.
type OversightConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	AuthToken  string
	MarketID   string
	MarketName string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "agora"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure: authCookieSecure,
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		Oversight: OversightConfig{
			Enabled:    getenvBool("OVERSIGHT_METRICS_ENABLED", false),
			Exporter:   strings.ToLower(getenv("OVERSIGHT_METRICS_EXPORTER", "")),
			Endpoint:   strings.TrimSpace(getenv("OVERSIGHT_METRICS_ENDPOINT", "")),
			AuthToken:  strings.TrimSpace(getenv("OVERSIGHT_METRICS_AUTH_TOKEN", "")),
			MarketID:   strings.TrimSpace(getenv("OVERSIGHT_MARKET_ID", "")),
			MarketName: getenv("OVERSIGHT_MARKET_NAME", ""),
		},
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "agora"),
		DBUser:               getenv("DATABASE_USER", "agora"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBFile:               getenv("DATABASE_FILE", "agora.db"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RedisAddr:            strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		RedisDB:              getenvInt("REDIS_DB", 0),
		RateLimitEnabled:     getenvBool("RATE_LIMIT_ENABLED", false),
		RateLimitRPS:         getenvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:       getenvInt("RATE_LIMIT_BURST", 40),
		RateLimitExportRPS:   getenvFloat("RATE_LIMIT_EXPORT_RPS", 2),
		RateLimitExportBurst: getenvInt("RATE_LIMIT_EXPORT_BURST", 5),
		SeedDemoData:         getenvBool("SEED_DEMO_DATA", false),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
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
