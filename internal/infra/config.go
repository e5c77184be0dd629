package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents client configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	APIBaseURL          string
	APIKey              string
	SessionToken        string
	RequestTimeout      time.Duration
	UploadConcurrency   int
	BatchConcurrency    int
	PollInterval        time.Duration
	PollErrorInterval   time.Duration
	PollMaxErrorRetries int
	DownloadPath        string
	WebhookPort         string
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		APIBaseURL:          getEnv("IMGTO3D_API_URL", "http://localhost:8000"),
		APIKey:              strings.TrimSpace(os.Getenv("IMGTO3D_API_KEY")),
		SessionToken:        strings.TrimSpace(os.Getenv("IMGTO3D_SESSION_TOKEN")),
		RequestTimeout:      time.Second * time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)),
		UploadConcurrency:   getEnvInt("UPLOAD_CONCURRENCY", 4),
		BatchConcurrency:    getEnvInt("BATCH_CONCURRENCY", 2),
		PollInterval:        time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)),
		PollErrorInterval:   time.Second * time.Duration(getEnvInt("POLL_ERROR_INTERVAL_SECONDS", 10)),
		PollMaxErrorRetries: getEnvInt("POLL_MAX_ERROR_RETRIES", 0),
		DownloadPath:        getEnv("DOWNLOAD_PATH", "./downloads"),
		WebhookPort:         getEnv("WEBHOOK_PORT", "8090"),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("IMGTO3D_API_URL is required")
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 1
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
