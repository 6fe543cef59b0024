package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL        string
	StateDir          string        // durable client state (token, preferences)
	LogDirectory      string
	FrameInterval     time.Duration // cadence of the live frame loop
	ReconnectDelay    time.Duration // fixed delay before a socket retry
	StatsPollInterval time.Duration // dashboard polling cadence
	CaptureWidth      int
	CaptureHeight     int
	JPEGQuality       int
	RequestTimeout    time.Duration
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory. Missing keys fall back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:        getEnv("API_BASE_URL", "http://127.0.0.1:8000"),
		StateDir:          getEnv("STATE_DIR", defaultStateDir()),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		FrameInterval:     time.Duration(getEnvAsInt("FRAME_INTERVAL_MS", 100)) * time.Millisecond,
		ReconnectDelay:    time.Duration(getEnvAsInt("RECONNECT_DELAY_MS", 1000)) * time.Millisecond,
		StatsPollInterval: time.Duration(getEnvAsInt("STATS_POLL_INTERVAL", 10)) * time.Second,
		CaptureWidth:      getEnvAsInt("CAPTURE_WIDTH", 640),
		CaptureHeight:     getEnvAsInt("CAPTURE_HEIGHT", 480),
		JPEGQuality:       getEnvAsInt("JPEG_QUALITY", 70),
		RequestTimeout:    time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 30)) * time.Second,
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".faceconsole")
	}
	return filepath.Join(home, ".faceconsole")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
