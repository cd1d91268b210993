// Package config loads service settings from the environment through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Stock update modes for the checkout workflow.
const (
	// StockModeOverwrite writes stock-at-add-time minus quantity as an absolute value.
	StockModeOverwrite = "overwrite"
	// StockModeConditional decrements only when the current stock covers the quantity.
	StockModeConditional = "conditional"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the resolved service configuration.
type Config struct {
	AppPort           string
	DBDriver          string
	DatabaseDSN       string
	JWTSecret         string
	TokenTTL          time.Duration
	RabbitMQURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CartTTL           time.Duration
	StockUpdateMode   string
	LowStockThreshold int
	AdminUsername     string
	AdminEmail        string
	AdminPassword     string
	LogLevel          string
	SeedCatalog       bool
}

// Load reads the configuration from environment variables on top of defaults.
// An empty RABBITMQ_URL or REDIS_ADDR disables that integration.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "file:storefront.db?cache=shared")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CART_TTL", "168h")
	v.SetDefault("STOCK_UPDATE_MODE", StockModeOverwrite)
	v.SetDefault("LOW_STOCK_THRESHOLD", 5)
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_CATALOG", false)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:           v.GetString("APP_PORT"),
		DBDriver:          v.GetString("DB_DRIVER"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		CartTTL:           v.GetDuration("CART_TTL"),
		StockUpdateMode:   v.GetString("STOCK_UPDATE_MODE"),
		LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		SeedCatalog:       v.GetBool("SEED_CATALOG"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver != DriverMemory && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DBDriver)
	}
	switch c.StockUpdateMode {
	case StockModeOverwrite, StockModeConditional:
	default:
		return fmt.Errorf("unsupported STOCK_UPDATE_MODE %q", c.StockUpdateMode)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.AdminUsername != "" && (c.AdminEmail == "" || c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required when ADMIN_USERNAME is set")
	}
	return nil
}
