package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"ad-creative-studio/internal/credential"
)

type Config struct {
	// Credential is resolved once at startup; it may be zero, in which case
	// generation reports a missing credential instead of failing to boot.
	Credential credential.Key

	TelegramToken string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	WebAddr            string
	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	SessionIdle        time.Duration
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	VideoPollInterval  time.Duration
	GeminiBaseURL      string
	GeminiAPIVersion   string
	GeminiImageModel   string
	GeminiVideoModel   string
	DownloadPrefix     string
}

func Load() (Config, error) {
	return LoadWith(credential.NewResolver())
}

// LoadWith reads the environment and resolves the API key through r.
func LoadWith(r *credential.Resolver) (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		WebAddr:            strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		SessionIdle:        time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		VideoPollInterval:  time.Duration(getEnvInt("VIDEO_POLL_SECONDS", 10)) * time.Second,
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiImageModel:   strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")),
		GeminiVideoModel:   strings.TrimSpace(getEnv("GEMINI_VIDEO_MODEL", "veo-2.0-generate-001")),
		DownloadPrefix:     strings.TrimSpace(getEnv("DOWNLOAD_PREFIX", "anuncio")),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if r != nil {
		if key, ok := r.Resolve(); ok {
			cfg.Credential = key
		}
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 240 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 10 * time.Second
	}
	if cfg.SessionIdle < 0 {
		cfg.SessionIdle = 0
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
