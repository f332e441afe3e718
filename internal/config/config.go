// Package config loads service settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// FileEnv names the variable holding the optional YAML config path.
const FileEnv = "HOTELSEARCH_CONFIG"

type Config struct {
	Env  string `yaml:"env"`
	Port string `yaml:"port"`
	Mode Mode   `yaml:"mode"`

	SearchAPIURL       string `yaml:"searchApiUrl"`
	AvailabilityAPIURL string `yaml:"availabilityApiUrl"`
	AvailabilityAPIKey string `yaml:"availabilityApiKey"`
	Currency           string `yaml:"currency"`
	Language           string `yaml:"language"`
	Brand              string `yaml:"brand"`
	DefaultCountryCode string `yaml:"defaultCountryCode"`

	UpstreamTimeout time.Duration `yaml:"upstreamTimeout"`
	ComputeTimeout  time.Duration `yaml:"computeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	PollDelay                time.Duration `yaml:"pollDelay"`
	PollMaxIterations        int           `yaml:"pollMaxIterations"`
	AnchorPageLoadIterations int           `yaml:"anchorPageLoadIterations"`
	AnchorRefineIterations   int           `yaml:"anchorRefineIterations"`
	OffersRefreshIterations  int           `yaml:"offersRefreshIterations"`

	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`

	RedisURL   string        `yaml:"redisUrl"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
}

func Default() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8080",
		Mode:                     ModeMock,
		Currency:                 "EUR",
		Language:                 "en",
		Brand:                    "vio",
		DefaultCountryCode:       "US",
		UpstreamTimeout:          10 * time.Second,
		ComputeTimeout:           30 * time.Second,
		RequestTimeout:           45 * time.Second,
		PollMaxIterations:        5,
		AnchorPageLoadIterations: 1,
		AnchorRefineIterations:   3,
		OffersRefreshIterations:  5,
		RateLimitRPS:             5,
		RateLimitBurst:           20,
		SessionTTL:               30 * time.Minute,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.Port, "PORT")
	if v, ok := os.LookupEnv("MODE"); ok {
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(v)))
	}
	setString(&cfg.SearchAPIURL, "SEARCH_API_URL")
	setString(&cfg.AvailabilityAPIURL, "AVAILABILITY_API_URL")
	setString(&cfg.AvailabilityAPIKey, "AVAILABILITY_API_KEY")
	setString(&cfg.Currency, "CURRENCY")
	setString(&cfg.Language, "LANGUAGE")
	setString(&cfg.Brand, "BRAND")
	setString(&cfg.DefaultCountryCode, "DEFAULT_COUNTRY_CODE")
	setString(&cfg.RedisURL, "REDIS_URL")

	return errors.Join(
		setDuration(&cfg.UpstreamTimeout, "UPSTREAM_TIMEOUT"),
		setDuration(&cfg.ComputeTimeout, "COMPUTE_TIMEOUT"),
		setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT"),
		setDuration(&cfg.PollDelay, "POLL_DELAY"),
		setDuration(&cfg.SessionTTL, "SESSION_TTL"),
		setInt(&cfg.PollMaxIterations, "POLL_MAX_ITERATIONS"),
		setInt(&cfg.AnchorPageLoadIterations, "ANCHOR_PAGE_LOAD_ITERATIONS"),
		setInt(&cfg.AnchorRefineIterations, "ANCHOR_REFINE_ITERATIONS"),
		setInt(&cfg.OffersRefreshIterations, "OFFERS_REFRESH_ITERATIONS"),
		setFloat(&cfg.RateLimitRPS, "RATE_LIMIT_RPS"),
		setInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST"),
	)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeMock:
	case ModeLive:
		if c.SearchAPIURL == "" || c.AvailabilityAPIURL == "" {
			errs = append(errs, errors.New("SEARCH_API_URL and AVAILABILITY_API_URL are required in live mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("MODE must be %q or %q, got %q", ModeMock, ModeLive, c.Mode))
	}
	if c.PollMaxIterations < 1 || c.AnchorPageLoadIterations < 1 || c.AnchorRefineIterations < 1 || c.OffersRefreshIterations < 1 {
		errs = append(errs, errors.New("poll iteration counts must be at least 1"))
	}
	if c.PollDelay < 0 {
		errs = append(errs, errors.New("POLL_DELAY must not be negative"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}
