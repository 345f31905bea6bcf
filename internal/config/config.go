// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	YouTube  YouTubeConfig
	OpenAI   OpenAIConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	Debug           bool
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig contains the metadata cache connection configuration.
// An empty Addr disables the cache; every lookup is then a miss.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig contains the optional event publishing configuration.
// An empty Host disables publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host     string
	User     string
	Password string
	Exchange string
	Port     int
}

// YouTubeConfig contains YouTube Data API configuration.
// APIKey is required; its absence is a fatal configuration error.
type YouTubeConfig struct {
	APIKey          string
	ApplicationName string
	MaxComments     int
}

// OpenAIConfig contains the LLM provider configuration. An empty APIKey
// silently disables sentiment analysis and keyword extraction.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// AuthConfig maps session tokens to user IDs. Session issuance itself is an
// external concern; the service only resolves a caller identity per request.
type AuthConfig struct {
	Tokens map[string]int64
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.debug", false)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "comment_analysis")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis metadata cache (optional)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// RabbitMQ event publishing (optional)
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "video.analysis")

	// YouTube Data API
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.applicationname", "YouTube Comment Analyzer")
	viper.SetDefault("youtube.maxcomments", 500)

	// OpenAI
	viper.SetDefault("openai.apikey", "")
	viper.SetDefault("openai.model", "gpt-3.5-turbo")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
