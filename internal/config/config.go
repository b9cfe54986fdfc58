// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// telegram api credentials (my.telegram.org)
	TGApiID   int
	TGApiHash string

	// bot token from @BotFather
	BotToken string

	// telegram user id of the bot owner
	OwnerID int64

	// storage
	DatabasePath string
	SessionsFile string
	ScratchDir   string

	// tier policy file
	PlansFile string

	// nats (optional, publishing disabled when empty)
	NatsURL string

	// http status endpoint (0 disables)
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TGApiID:      getEnvInt("TG_API_ID", 0),
		TGApiHash:    getEnv("TG_API_HASH", ""),
		BotToken:     getEnv("BOT_TOKEN", ""),
		OwnerID:      getEnvInt64("OWNER_ID", 0),
		DatabasePath: getEnv("DATABASE_PATH", "./bot.db"),
		SessionsFile: getEnv("SESSIONS_FILE", "./user_sessions.json"),
		ScratchDir:   getEnv("SCRATCH_DIR", "./temp_downloads"),
		PlansFile:    getEnv("PLANS_FILE", "./plans.yaml"),
		NatsURL:      getEnv("NATS_URL", ""),
		HTTPPort:     getEnvInt("HTTP_PORT", 0),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
