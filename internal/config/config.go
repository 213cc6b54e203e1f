package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                = "8080"
	defaultDatabaseURL         = "file:projectcomments.db"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultJWTTTL              = "24h"
	defaultStorageDir          = "./storage"
	defaultTempDir             = "./tmp/uploads"
	defaultMaxUploadSize       = 50 * 1024 * 1024
	defaultUploadRatePerMinute = 60
	defaultPollInterval        = "-1ms"
	defaultUploadPollInterval  = "500ms"
	defaultComposerIdleTTL     = "2h"
	defaultTempFileTTL         = "24h"
	defaultSweepInterval       = "5m"
	defaultCommentCacheTTL     = "1h"
	defaultLogLevel            = "info"
	defaultLocale              = "en"
	defaultImageMaxWidth       = 974
	defaultImageMaxHeight      = 718
)

// Config holds everything the API process reads from its environment.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageDir          string
	TempDir             string
	MaxUploadSize       int64
	UploadRatePerMinute int

	// PollInterval is the client poll interval outside of uploads; negative
	// means the client does not poll.
	PollInterval       time.Duration
	UploadPollInterval time.Duration

	ComposerIdleTTL time.Duration
	TempFileTTL     time.Duration
	SweepInterval   time.Duration
	CommentCacheTTL time.Duration

	ImageMaxWidth  int
	ImageMaxHeight int

	DefaultLocale  string
	AllowedOrigins []string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.StorageDir = strings.TrimSpace(getEnv("STORAGE_DIR", defaultStorageDir))
	cfg.TempDir = strings.TrimSpace(getEnv("UPLOAD_TEMP_DIR", defaultTempDir))
	cfg.DefaultLocale = strings.TrimSpace(getEnv("DEFAULT_LOCALE", defaultLocale))
	cfg.AllowedOrigins = parseListEnv("ALLOWED_ORIGINS", "*")

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.LogCompress = parseBoolEnv("LOG_COMPRESS", "false")

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = parseDurationEnv("POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.UploadPollInterval, err = parseDurationEnv("UPLOAD_POLL_INTERVAL", defaultUploadPollInterval); err != nil {
		return nil, err
	}
	if cfg.ComposerIdleTTL, err = parseDurationEnv("COMPOSER_IDLE_TTL", defaultComposerIdleTTL); err != nil {
		return nil, err
	}
	if cfg.TempFileTTL, err = parseDurationEnv("TEMP_FILE_TTL", defaultTempFileTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.CommentCacheTTL, err = parseDurationEnv("COMMENT_CACHE_TTL", defaultCommentCacheTTL); err != nil {
		return nil, err
	}

	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxUpload, err := parseIntEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSize = int64(maxUpload)
	if cfg.UploadRatePerMinute, err = parseIntEnv("UPLOAD_RATE_PER_MINUTE", defaultUploadRatePerMinute); err != nil {
		return nil, err
	}
	if cfg.ImageMaxWidth, err = parseIntEnv("IMAGE_MAX_WIDTH", defaultImageMaxWidth); err != nil {
		return nil, err
	}
	if cfg.ImageMaxHeight, err = parseIntEnv("IMAGE_MAX_HEIGHT", defaultImageMaxHeight); err != nil {
		return nil, err
	}
	if cfg.LogMaxSizeMB, err = parseIntEnv("LOG_MAX_SIZE_MB", 100); err != nil {
		return nil, err
	}
	if cfg.LogMaxBackups, err = parseIntEnv("LOG_MAX_BACKUPS", 3); err != nil {
		return nil, err
	}
	if cfg.LogMaxAgeDays, err = parseIntEnv("LOG_MAX_AGE_DAYS", 7); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.UploadPollInterval <= 0 {
		return fmt.Errorf("UPLOAD_POLL_INTERVAL must be > 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if cfg.UploadRatePerMinute <= 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MINUTE must be > 0")
	}
	if cfg.ImageMaxWidth <= 0 || cfg.ImageMaxHeight <= 0 {
		return fmt.Errorf("IMAGE_MAX_WIDTH and IMAGE_MAX_HEIGHT must be > 0")
	}
	if cfg.ComposerIdleTTL <= 0 || cfg.TempFileTTL <= 0 || cfg.SweepInterval <= 0 {
		return fmt.Errorf("COMPOSER_IDLE_TTL, TEMP_FILE_TTL and SWEEP_INTERVAL must be > 0")
	}
	if cfg.StorageDir == "" || cfg.TempDir == "" {
		return fmt.Errorf("STORAGE_DIR and UPLOAD_TEMP_DIR must not be empty")
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

// IsProd reports whether the process runs in a production-like environment.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseListEnv(name, fallback string) []string {
	raw := getEnv(name, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
