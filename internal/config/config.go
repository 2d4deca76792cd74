package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envRegion          = "SP_REGION"
	envProfile         = "SP_PROFILE"
	envEndpointURL     = "SP_ENDPOINT_URL"
	envArtifactBucket  = "SP_ARTIFACT_BUCKET"
	envArtifactPrefix  = "SP_ARTIFACT_PREFIX"
	envPollInterval    = "SP_POLL_INTERVAL"
	envLogLevel        = "SP_LOG_LEVEL"
	envSlackWebhookURL = "SP_SLACK_WEBHOOK_URL"
	envWebhookURL      = "SP_WEBHOOK_URL"
	envWebhookTemplate = "SP_WEBHOOK_TEMPLATE"
	envMetricsFile     = "SP_METRICS_FILE"
	envStateFile       = "SP_STATE_FILE"
	envDryRunNotify    = "SP_DRY_RUN_NOTIFY"
	envListenAddr      = "SP_LISTEN_ADDR"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultLogLevel     = "info"
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	Region          string
	Profile         string
	EndpointURL     string
	ArtifactBucket  string
	ArtifactPrefix  string
	PollInterval    time.Duration
	LogLevel        string
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	MetricsFile     string
	StateFile       string
	DryRunNotify    bool
	// ListenAddr serves /metrics, /healthz and /readyz while an operation runs.
	ListenAddr      string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		PollInterval: defaultPollInterval,
		LogLevel:     defaultLogLevel,
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPollInterval, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envPollInterval)
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envDryRunNotify); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRunNotify, err)
		}
		cfg.DryRunNotify = dryRun
	}

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	fields := []struct {
		key    string
		target *string
	}{
		{envRegion, &cfg.Region},
		{envProfile, &cfg.Profile},
		{envEndpointURL, &cfg.EndpointURL},
		{envArtifactBucket, &cfg.ArtifactBucket},
		{envArtifactPrefix, &cfg.ArtifactPrefix},
		{envSlackWebhookURL, &cfg.SlackWebhookURL},
		{envWebhookURL, &cfg.WebhookURL},
		{envWebhookTemplate, &cfg.WebhookTemplate},
		{envMetricsFile, &cfg.MetricsFile},
		{envStateFile, &cfg.StateFile},
		{envListenAddr, &cfg.ListenAddr},
	}
	for _, s := range fields {
		if value, ok := lookupTrimmed(s.key); ok {
			*s.target = value
		}
	}

	urls := []struct {
		name  string
		value string
	}{
		{envEndpointURL, cfg.EndpointURL},
		{envSlackWebhookURL, cfg.SlackWebhookURL},
		{envWebhookURL, cfg.WebhookURL},
	}
	for _, u := range urls {
		if u.value == "" {
			continue
		}
		if err := validateURL(u.value, u.name); err != nil {
			return Config{}, err
		}
	}

	if cfg.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envListenAddr, err)
		}
	}

	if cfg.WebhookTemplate != "" && cfg.WebhookURL == "" {
		return Config{}, fmt.Errorf("%s requires %s", envWebhookTemplate, envWebhookURL)
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
