package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Tracing   TracingConfig   `toml:"tracing"`
}

type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Secure      bool   `toml:"secure"`      // Send HSTS
	Environment string `toml:"environment"` // "development", "production", "test"
	LogLevel    string `toml:"log_level"`
}

type DatabaseConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	DBName         string `toml:"name"`
	SSLMode        string `toml:"ssl_mode"`
	MigrationsPath string `toml:"migrations_path"`
	AutoMigrate    bool   `toml:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RateLimitConfig bounds how many connection requests one party may send
// per window.
type RateLimitConfig struct {
	SendLimit     int `toml:"send_limit"`
	WindowSeconds int `toml:"window_seconds"`
}

type TracingConfig struct {
	Enabled bool `toml:"enabled"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "campus",
			Password:       "campus",
			DBName:         "campusconnect",
			SSLMode:        "disable",
			MigrationsPath: "migrations",
			AutoMigrate:    true,
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6379,
		},
		RateLimit: RateLimitConfig{
			SendLimit:     30,
			WindowSeconds: 3600,
		},
	}
}

// Load builds the configuration from defaults, then the optional TOML file
// at path, then environment variables, each layer overriding the previous.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Server = ServerConfig{
		Host:        getEnv("SERVER_HOST", cfg.Server.Host),
		Port:        getEnvInt("SERVER_PORT", cfg.Server.Port),
		Secure:      getEnvBool("SERVER_SECURE", cfg.Server.Secure),
		Environment: getEnv("APP_ENV", cfg.Server.Environment),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", cfg.Server.LogLevel)),
	}
	cfg.Database = DatabaseConfig{
		Host:           getEnv("DB_HOST", cfg.Database.Host),
		Port:           getEnvInt("DB_PORT", cfg.Database.Port),
		User:           getEnv("DB_USER", cfg.Database.User),
		Password:       getEnv("DB_PASSWORD", cfg.Database.Password),
		DBName:         getEnv("DB_NAME", cfg.Database.DBName),
		SSLMode:        getEnv("DB_SSLMODE", cfg.Database.SSLMode),
		MigrationsPath: getEnv("DB_MIGRATIONS_PATH", cfg.Database.MigrationsPath),
		AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate),
	}
	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", cfg.Redis.Enabled),
		Host:     getEnv("REDIS_HOST", cfg.Redis.Host),
		Port:     getEnvInt("REDIS_PORT", cfg.Redis.Port),
		Password: getEnv("REDIS_PASSWORD", cfg.Redis.Password),
		DB:       getEnvInt("REDIS_DB", cfg.Redis.DB),
	}
	cfg.RateLimit = RateLimitConfig{
		SendLimit:     getEnvInt("RATE_LIMIT_SEND", cfg.RateLimit.SendLimit),
		WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimit.WindowSeconds),
	}
	cfg.Tracing = TracingConfig{
		Enabled: getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database name is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database port must be between 1 and 65535, got %d", c.Database.Port))
	}
	if c.RateLimit.SendLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.SendLimit))
	}
	if c.RateLimit.WindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("rate limit window must be positive, got %d", c.RateLimit.WindowSeconds))
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Server.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
