package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Session token verification
	Auth AuthConfig

	// Realtime transport and relay
	Realtime RealtimeConfig

	// Visitor identity resolution
	Identity IdentityConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MigrationsPath  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AuthConfig holds JWT verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RealtimeConfig holds websocket and cross-instance relay settings
type RealtimeConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	AllowedOrigins []string

	// Relay is enabled when RedisAddr is set
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
}

// IdentityConfig controls how unauthenticated visitors are told apart
type IdentityConfig struct {
	AnonymousIDs bool
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables, after merging any
// .env files found in the working directory.
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase is Load for tools that only touch the database, such as
// the migration command. Auth and realtime settings are not required.
func LoadDatabase() (*Config, error) {
	cfg := read()
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() *Config {
	loadEnvFiles()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "blog_realtime"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Realtime: RealtimeConfig{
			SendBuffer:     getIntEnv("WS_SEND_BUFFER", 64),
			WriteTimeout:   getDurationEnv("WS_WRITE_TIMEOUT", 10*time.Second),
			PongTimeout:    getDurationEnv("WS_PONG_TIMEOUT", 60*time.Second),
			MaxMessageSize: getInt64Env("WS_MAX_MESSAGE_SIZE", 4096),
			AllowedOrigins: getListEnv("WS_ALLOWED_ORIGINS", []string{"*"}),
			RedisAddr:      getEnv("REDIS_ADDR", ""),
			RedisPassword:  getEnv("REDIS_PASSWORD", ""),
			RedisDB:        getIntEnv("REDIS_DB", 0),
			RedisChannel:   getEnv("REDIS_CHANNEL", "blog-realtime:events"),
		},
		Identity: IdentityConfig{
			AnonymousIDs: getBoolEnv("ANONYMOUS_IDS", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Realtime.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

// Validate checks the connection settings are present
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RelayEnabled reports whether events should be relayed through Redis
func (c *RealtimeConfig) RelayEnabled() bool {
	return c.RedisAddr != ""
}

// loadEnvFiles merges .env.<APP_ENV> and then .env into the environment.
// godotenv never overrides variables that are already set, so the real
// environment wins, then the environment-specific file.
func loadEnvFiles() {
	var files []string
	if env := os.Getenv("APP_ENV"); env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
