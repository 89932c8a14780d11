package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Jiang-hao/hostWalletService/internal/repository"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	Port        string
	Env         string
	ServiceName string
	StoreDriver string
	// SeedFile preloads hosts and payments into the memory store.
	SeedFile     string
	DB           repository.Config
	Redis        RedisConfig
	JWTSecret    string
	InternalKey  string
	Fees         util.FeeSchedule
	OTLPEndpoint string

	// DotEnvLoaded reports whether a .env file was found.
	DotEnvLoaded bool
}

func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	commission, err := decimal.NewFromString(getEnv("PLATFORM_COMMISSION_PERCENTAGE", strconv.Itoa(util.PlatformCommissionPercentage)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PLATFORM_COMMISSION_PERCENTAGE: %w", err)
	}
	gst, err := decimal.NewFromString(getEnv("GST_PERCENTAGE", strconv.Itoa(util.GSTPercentage)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid GST_PERCENTAGE: %w", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "production"),
		ServiceName: getEnv("SERVICE_NAME", "host-wallet-service"),
		StoreDriver: getEnv("STORE_DRIVER", DriverPostgres),
		SeedFile:    getEnv("MEMORY_SEED_FILE", ""),
		DB: repository.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "host_wallet"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWTSecret:    getEnv("JWT_SECRET", ""),
		InternalKey:  getEnv("INTERNAL_API_KEY", ""),
		Fees:         util.FeeSchedule{CommissionPercentage: commission, GSTPercentage: gst},
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		DotEnvLoaded: loaded,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.StoreDriver != DriverPostgres && c.StoreDriver != DriverMemory {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SeedFile != "" && c.StoreDriver != DriverMemory {
		return fmt.Errorf("MEMORY_SEED_FILE requires STORE_DRIVER=%s", DriverMemory)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.InternalKey == "" {
		return fmt.Errorf("INTERNAL_API_KEY is required")
	}
	return c.Fees.Validate()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
