package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stefanpenner/testpulse/pkg/analyzer"
	"github.com/stefanpenner/testpulse/pkg/quality"
	"github.com/stefanpenner/testpulse/pkg/runs"
	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTokenEnv               = "TESTPULSE_TOKEN"
	DefaultSessionDays            = runs.DefaultSessionDays
	DefaultGoodThreshold          = 98.0
	DefaultOKThreshold            = 70.0
	DefaultBufferDays             = 3
	DefaultTrendWindowDays        = analyzer.DefaultChangepointWindowDays
	DefaultFetchWindowDays        = telemetry.DefaultWindowDays
	DefaultStaleAfter             = quality.DefaultStaleAfter
	DefaultTestEnvironmentPattern = `(?i)test`
	DefaultCacheBackend           = BackendNone
	DefaultCacheDir               = ".testpulse-cache"
	DefaultCacheTTL               = 10 * time.Minute
	DefaultLogLevel               = "info"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendFile  = "file"
)

// Environment overrides.
const (
	EnvOrganization = "TESTPULSE_ORG"
	EnvProject      = "TESTPULSE_PROJECT"
	EnvRedisAddr    = "TESTPULSE_REDIS_ADDR"
)

// Config is the full testpulse configuration.
type Config struct {
	Organization   string `yaml:"organization"`
	Project        string `yaml:"project"`
	BaseURL        string `yaml:"base_url"`
	ReleaseBaseURL string `yaml:"release_base_url"`

	// TokenEnv names the environment variable holding the personal access token.
	TokenEnv string `yaml:"token_env"`

	SessionDays int `yaml:"session_days"`

	// VersionMarkers are the substrings a run name must contain to be analyzed.
	VersionMarkers []string `yaml:"version_markers"`

	// ThresholdsFile is the file form of QualityThresholds. Each unset field
	// takes its default; an explicit 0 is kept.
	ThresholdsFile ThresholdsConfig `yaml:"thresholds"`

	QualityThresholds quality.Thresholds `yaml:"-"`

	// BufferDays is the widest tolerance, in days on each side, used when
	// matching executions to a target date.
	BufferDays      int `yaml:"buffer_days"`
	TrendWindowDays int `yaml:"trend_window_days"`
	FetchWindowDays int `yaml:"fetch_window_days"`

	StaleAfter             time.Duration `yaml:"stale_after"`
	TestEnvironmentPattern string        `yaml:"test_environment_pattern"`
	AutomationStatus       bool          `yaml:"automation_status"`

	Cache    CacheConfig `yaml:"cache"`
	LogLevel string      `yaml:"log_level"`

	testEnvironment *regexp.Regexp
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	// Backend is one of: none | redis | file.
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	Dir       string        `yaml:"dir"`
	TTL       time.Duration `yaml:"ttl"`
}

// ThresholdsConfig holds pass-rate cutoffs as percentages.
type ThresholdsConfig struct {
	Good *float64 `yaml:"good"`
	OK   *float64 `yaml:"ok"`
}

// Load reads path, applies defaults and environment overrides, then
// validates. An empty path yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = telemetry.DefaultBaseURL
	}
	if cfg.ReleaseBaseURL == "" {
		cfg.ReleaseBaseURL = telemetry.DefaultReleaseBaseURL
	}
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = DefaultTokenEnv
	}
	if cfg.SessionDays == 0 {
		cfg.SessionDays = DefaultSessionDays
	}
	cfg.QualityThresholds = quality.Thresholds{
		Good: floatOrDefault(cfg.ThresholdsFile.Good, DefaultGoodThreshold),
		OK:   floatOrDefault(cfg.ThresholdsFile.OK, DefaultOKThreshold),
	}
	if cfg.BufferDays == 0 {
		cfg.BufferDays = DefaultBufferDays
	}
	if cfg.TrendWindowDays == 0 {
		cfg.TrendWindowDays = DefaultTrendWindowDays
	}
	if cfg.FetchWindowDays == 0 {
		cfg.FetchWindowDays = DefaultFetchWindowDays
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.TestEnvironmentPattern == "" {
		cfg.TestEnvironmentPattern = DefaultTestEnvironmentPattern
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

func floatOrDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func applyEnv(cfg *Config) {
	cfg.Organization = envOrDefault(EnvOrganization, cfg.Organization)
	cfg.Project = envOrDefault(EnvProject, cfg.Project)
	cfg.Cache.RedisAddr = envOrDefault(EnvRedisAddr, cfg.Cache.RedisAddr)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func validate(cfg *Config) error {
	th := cfg.QualityThresholds
	if th.OK < 0 || th.Good > 100 || th.OK > th.Good {
		return fmt.Errorf("config: thresholds must satisfy 0 <= ok <= good <= 100, got ok=%v good=%v", th.OK, th.Good)
	}
	if cfg.SessionDays < 0 {
		return fmt.Errorf("config: session_days must be positive, got %d", cfg.SessionDays)
	}
	if cfg.FetchWindowDays < 0 {
		return fmt.Errorf("config: fetch_window_days must be positive, got %d", cfg.FetchWindowDays)
	}
	if cfg.BufferDays < 0 {
		return fmt.Errorf("config: buffer_days must not be negative, got %d", cfg.BufferDays)
	}
	switch cfg.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("config: cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: cache.backend %q is invalid (want none|redis|file)", cfg.Cache.Backend)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	re, err := regexp.Compile(cfg.TestEnvironmentPattern)
	if err != nil {
		return fmt.Errorf("config: test_environment_pattern: %w", err)
	}
	cfg.testEnvironment = re
	return nil
}

// RequireRemote reports an error unless the fields needed to talk to the
// telemetry API are set.
func (c *Config) RequireRemote() error {
	if c.Organization == "" || c.Project == "" {
		return fmt.Errorf("config: organization and project are required (set them in the config file or %s/%s)", EnvOrganization, EnvProject)
	}
	return nil
}

// Token resolves the personal access token from the environment.
func (c *Config) Token() string {
	return os.Getenv(c.TokenEnv)
}

func (c *Config) Credentials() telemetry.Credentials {
	return telemetry.Credentials{Organization: c.Organization, Project: c.Project, Token: c.Token()}
}

func (c *Config) Thresholds() quality.Thresholds {
	return c.QualityThresholds
}

func (c *Config) NormalizeOptions() runs.NormalizeOptions {
	return runs.NormalizeOptions{VersionMarkers: append([]string(nil), c.VersionMarkers...)}
}

func (c *Config) BuildOptions() quality.BuildOptions {
	return quality.BuildOptions{AutomationStatus: c.AutomationStatus, Thresholds: c.QualityThresholds}
}

// TimelineOptions returns release timeline options evaluated at now.
func (c *Config) TimelineOptions(now time.Time) quality.TimelineOptions {
	return quality.TimelineOptions{Now: now, StaleAfter: c.StaleAfter, TestEnvironment: c.testEnvironment}
}
