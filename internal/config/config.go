package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	DatabaseURL string
	RedisURL    string

	// TTS server (self-hosted; the model is loaded server-side on first request)
	TTSBaseURL string
	TTSTimeout time.Duration

	// Audio storage fallback chain: GCS -> NATS object store -> local disk
	GCSBucket    string
	GCSCDNDomain string
	NATSURL      string
	AudioDataDir string
	// PublicBaseURL prefixes URLs for audio served from the local-disk fallback
	PublicBaseURL string

	// Audio job processing
	PassInterval   time.Duration
	StaleThreshold time.Duration

	SessionSecret string
	LogLevel      string
	LogFormat     string
	Env           string
	Port          string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		TTSBaseURL:     getEnvWithDefault("TTS_BASE_URL", "http://localhost:8880"),
		TTSTimeout:     getDurationWithDefault("TTS_TIMEOUT", 120*time.Second),
		GCSBucket:      os.Getenv("GCS_BUCKET_NAME"),
		GCSCDNDomain:   os.Getenv("CDN_DOMAIN"),
		NATSURL:        os.Getenv("NATS_URL"),
		AudioDataDir:   getEnvWithDefault("AUDIO_DATA_DIR", "./data/audio"),
		PublicBaseURL:  getEnvWithDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		PassInterval:   getDurationWithDefault("AUDIO_PASS_INTERVAL", 10*time.Second),
		StaleThreshold: getDurationWithDefault("AUDIO_STALE_THRESHOLD", 30*time.Minute),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvWithDefault("LOG_FORMAT", "text"),
		Env:            getEnvWithDefault("ENV", "development"),
		Port:           getEnvWithDefault("PORT", "8080"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are treated as seconds (e.g., AUDIO_PASS_INTERVAL=10)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("WARNING: invalid duration for %s: %q, using default %s", key, value, defaultValue)
	return defaultValue
}
