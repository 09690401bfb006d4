package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"kairon/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Booking    BookingConfig    `yaml:"booking"`
	MockServer MockServerConfig `yaml:"mock_server"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	BaseURL         string          `yaml:"base_url"`
	TimeoutSeconds  int             `yaml:"timeout_seconds"`
	CacheTTLSeconds int             `yaml:"cache_ttl_seconds"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Retry           RetryConfig     `yaml:"retry"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RetryConfig struct {
	MaxRetries     int     `yaml:"max_retries"`
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	BackoffFactor  float64 `yaml:"backoff_factor"`
}

type SessionConfig struct {
	AccessToken    string `yaml:"access_token"`
	CompanyID      string `yaml:"company_id"`
	ProfessionalID string `yaml:"professional_id"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type DatabaseConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BookingConfig struct {
	Timezone        string `yaml:"timezone"`
	DraftTTLMinutes int    `yaml:"draft_ttl_minutes"`
	UseMockSlots    bool   `yaml:"use_mock_slots"`
}

type MockServerConfig struct {
	Port           int      `yaml:"port"`
	Tokens         []string `yaml:"tokens"`
	OpeningTime    string   `yaml:"opening_time"`
	ClosingTime    string   `yaml:"closing_time"`
	SlotStepMins   int      `yaml:"slot_step_minutes"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	SeedFile       string   `yaml:"seed_file"`
	JWTSecret      string   `yaml:"jwt_secret"`

	// PublicCompanyID владелец записей, созданных через публичный эндпоинт
	PublicCompanyID string `yaml:"public_company_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.RateLimit.RPS < 0 {
		return errors.New("api rate_limit.rps must not be negative")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("booking timezone: %w", err)
	}
	return ValidateOpeningHours(c.MockServer.OpeningTime, c.MockServer.ClosingTime)
}

// ValidateOpeningHours checks the mock backend's daily window. Empty values are allowed.
func ValidateOpeningHours(opening, closing string) error {
	if opening == "" && closing == "" {
		return nil
	}
	open, err := time.Parse(models.SlotTimeLayout, opening)
	if err != nil {
		return fmt.Errorf("mock_server opening_time: %w", err)
	}
	closeAt, err := time.Parse(models.SlotTimeLayout, closing)
	if err != nil {
		return fmt.Errorf("mock_server closing_time: %w", err)
	}
	if !closeAt.After(open) {
		return fmt.Errorf("mock_server closing_time %s must be after opening_time %s", closing, opening)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "kairon"
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = int(models.DefaultRequestTimeout / time.Second)
	}
	if c.API.CacheTTLSeconds == 0 {
		c.API.CacheTTLSeconds = int(models.DefaultCatalogCacheTTL / time.Second)
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.API.Retry.InitialDelayMS == 0 {
		c.API.Retry.InitialDelayMS = 200
	}
	if c.API.Retry.MaxDelayMS == 0 {
		c.API.Retry.MaxDelayMS = 2000
	}
	if c.API.Retry.BackoffFactor == 0 {
		c.API.Retry.BackoffFactor = 2
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/kairon_mock.db"
	}
	if c.Database.Backup.Enabled && c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "data/backups"
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Local"
	}
	if c.Booking.DraftTTLMinutes == 0 {
		c.Booking.DraftTTLMinutes = int(models.DefaultDraftTTL / time.Minute)
	}
	if c.MockServer.Port == 0 {
		c.MockServer.Port = 8080
	}
	if c.MockServer.OpeningTime == "" {
		c.MockServer.OpeningTime = "09:00"
	}
	if c.MockServer.ClosingTime == "" {
		c.MockServer.ClosingTime = "18:00"
	}
	if c.MockServer.SlotStepMins == 0 {
		c.MockServer.SlotStepMins = 30
	}
	if c.MockServer.RateLimitBurst == 0 {
		c.MockServer.RateLimitBurst = 10
	}
	if c.MockServer.PublicCompanyID == "" {
		c.MockServer.PublicCompanyID = c.Session.CompanyID
	}
}

// RequestTimeout is the per-request HTTP timeout.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL is the catalog cache lifetime. Zero or negative disables caching.
func (c APIConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DraftTTL is how long an abandoned wizard draft is kept.
func (c BookingConfig) DraftTTL() time.Duration {
	return time.Duration(c.DraftTTLMinutes) * time.Minute
}

// Location resolves the booking timezone, falling back to time.Local.
func (c BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
