package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string

	HTTPAddr string

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
}

// Module provides configuration from the environment.
var Module = fx.Provide(Load)

// Load reads configuration from the environment, with .env as a
// development convenience.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getEnv("APP_NAME", "wellbill"),
		AppVersion:  getEnv("APP_VERSION", "dev"),
		Mode:        getEnv("APP_MODE", "release"),
		Environment: getEnv("APP_ENV", "production"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),

		DBType:            getEnv("DB_TYPE", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "wellbill"),
		DBUser:            getEnv("DB_USER", "wellbill"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     getEnvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getEnvInt("DB_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getEnvInt("DB_CONN_MAX_IDLE_TIME", 600),
	}
}

func (c Config) Debug() bool {
	return c.Mode == "debug"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
