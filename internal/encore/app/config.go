package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	SpotifyClientID     string // Required: provider application client ID
	SpotifyClientSecret string // Optional: enables anonymous (app-only) mode
	SpotifyRedirectURL  string // Required: the registered /callback URL
	SpotifyAuthorizeURL string // Optional: authorize endpoint override
	SpotifyTokenURL     string // Optional: token endpoint override

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./encore.db)
	MasterKeyPath       string        // Optional: path to refresh-token sealing key file
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURL: getEnvOrDefault(
			"SPOTIFY_REDIRECT_URL",
			"http://127.0.0.1:8080/callback",
		),
		SpotifyAuthorizeURL: os.Getenv("SPOTIFY_AUTHORIZE_URL"),
		SpotifyTokenURL:     os.Getenv("SPOTIFY_TOKEN_URL"),
		DatabaseFile:        getEnvOrDefault("ENCORE_DATABASE_FILE", "encore.db"),
		MasterKeyPath:       os.Getenv("ENCORE_MASTER_KEY_PATH"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
