package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConnections    int
	MinConnections    int
	MaxConnLifetime   int // seconds
	MaxConnIdleTime   int // seconds
	HealthCheckPeriod int // seconds
	AutoMigrate       bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// envBindings maps configuration keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.host":                  "SERVER_HOST",
	"server.port":                  "SERVER_PORT",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.name":                "DB_NAME",
	"database.max_connections":     "DB_MAX_CONNECTIONS",
	"database.min_connections":     "DB_MIN_CONNECTIONS",
	"database.max_conn_lifetime":   "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time":  "DB_MAX_CONN_IDLE_TIME",
	"database.health_check_period": "DB_HEALTH_CHECK_PERIOD",
	"database.auto_migrate":        "DB_AUTO_MIGRATE",
	"logger.level":                 "LOG_LEVEL",
	"logger.format":                "LOG_FORMAT",
	"auth.api_key":                 "API_KEY",
}

// Load loads configuration from defaults, an optional YAML file and environment
// variables, in increasing order of precedence. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Host:              v.GetString("database.host"),
			Port:              v.GetInt("database.port"),
			User:              v.GetString("database.user"),
			Password:          v.GetString("database.password"),
			Database:          v.GetString("database.name"),
			MaxConnections:    v.GetInt("database.max_connections"),
			MinConnections:    v.GetInt("database.min_connections"),
			MaxConnLifetime:   v.GetInt("database.max_conn_lifetime"),
			MaxConnIdleTime:   v.GetInt("database.max_conn_idle_time"),
			HealthCheckPeriod: v.GetInt("database.health_check_period"),
			AutoMigrate:       v.GetBool("database.auto_migrate"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(v.GetString("logger.level")),
			Format: strings.ToLower(v.GetString("logger.format")),
		},
		Auth: AuthConfig{
			APIKey: v.GetString("auth.api_key"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "portops")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 300)
	v.SetDefault("database.max_conn_idle_time", 1800)
	v.SetDefault("database.health_check_period", 60)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("auth.api_key", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.MaxConnIdleTime < 0 || c.Database.HealthCheckPeriod < 0 {
		return fmt.Errorf("database idle time and health check period cannot be negative")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
