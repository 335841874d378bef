package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Feed names double as the file stem of the persisted raw payload.
const (
	FeedPrimary   = "bafu_url_2"
	FeedSecondary = "bafu_url_6"
)

// Feed is one upstream hydroweb XML endpoint.
type Feed struct {
	Name string
	URL  string
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	Feeds        []Feed
	FeedUser     string
	FeedPassword string

	DataDir         string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	StaleThreshold  time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional station update publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	staleThreshold, err := parsePositiveDuration("STALE_THRESHOLD", "1h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Feeds: []Feed{
			{Name: FeedPrimary, URL: os.Getenv("BAFU_URL_2")},
			{Name: FeedSecondary, URL: os.Getenv("BAFU_URL_6")},
		},
		FeedUser:        os.Getenv("BAFU_USER"),
		FeedPassword:    os.Getenv("BAFU_PASS"),
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "/data"),
		RefreshInterval: refreshInterval,
		FetchTimeout:    fetchTimeout,
		CacheTTL:        cacheTTL,
		StaleThreshold:  staleThreshold,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "hydro-station-updates"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// ValidateFeeds reports missing upstream URLs or credentials. Only commands
// that talk to the upstream feeds need it.
func (c *Config) ValidateFeeds() error {
	var errs []error
	for _, f := range c.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("feed %s: %s is required", f.Name, feedEnvVar(f.Name)))
		}
	}
	if c.FeedUser == "" {
		errs = append(errs, errors.New("BAFU_USER is required"))
	}
	if c.FeedPassword == "" {
		errs = append(errs, errors.New("BAFU_PASS is required"))
	}
	return errors.Join(errs...)
}

// FeedNames returns the configured feed names in ingestion order.
func (c *Config) FeedNames() []string {
	names := make([]string, len(c.Feeds))
	for i, f := range c.Feeds {
		names[i] = f.Name
	}
	return names
}

func feedEnvVar(name string) string {
	switch name {
	case FeedPrimary:
		return "BAFU_URL_2"
	case FeedSecondary:
		return "BAFU_URL_6"
	default:
		return name
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	raw := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}
