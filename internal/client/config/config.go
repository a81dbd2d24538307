package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the client binary
type Config struct {
	ServerURL    string
	Token        string
	DBPath       string
	SyncInterval time.Duration
}

// LoadConfig loads the client configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		ServerURL:    getEnv("SYNC_SERVER_URL", "http://localhost:8080"),
		Token:        getEnv("SYNC_TOKEN", ""),
		DBPath:       getEnv("SYNC_DB_PATH", "shiftsync.db"),
		SyncInterval: time.Duration(getEnvAsInt("SYNC_INTERVAL_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
