package config

import (
	"os"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment once at
// startup.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string

	StreamTick      time.Duration
	StreamHeartbeat time.Duration
	StreamBudget    time.Duration
}

// Load reads configuration from environment variables, falling back to
// development defaults.
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "edubattle"),
		RedisAddr:     normalizeRedisAddr(getEnv("REDIS_ADDR", "localhost:6379")),
		HTTPPort:      getEnv("PORT", "8080"),

		StreamTick:      getDuration("STREAM_TICK", time.Second),
		StreamHeartbeat: getDuration("STREAM_HEARTBEAT", 15*time.Second),
		StreamBudget:    getDuration("STREAM_BUDGET", 25*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func normalizeRedisAddr(addr string) string {
	return strings.TrimPrefix(addr, "redis://")
}
