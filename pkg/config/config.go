package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/customfit-ai/customfit-go/pkg/tracker"
)

// Config holds every tunable of the SDK. Zero values are replaced with
// the envDefault tags by Load; structs built by hand should go through
// Validate before use.
type Config struct {
	// APIKey is the client key sent as the bearer token.
	APIKey string `env:"CF_API_KEY"`

	// BaseAPIURL and EventsPath form the collector endpoint.
	BaseAPIURL string `env:"CF_BASE_API_URL" envDefault:"https://api.customfit.ai"`
	EventsPath string `env:"CF_EVENTS_PATH" envDefault:"/v1/events"`

	// QueueCapacity bounds the in-memory event queue.
	QueueCapacity int `env:"CF_EVENT_QUEUE_CAPACITY" envDefault:"100"`

	// FlushInterval drives the periodic background flush; zero disables
	// the timer.
	FlushInterval time.Duration `env:"CF_FLUSH_INTERVAL" envDefault:"30s"`

	// AutoFlush toggles utilization-triggered background flushing.
	AutoFlush bool `env:"CF_AUTO_FLUSH" envDefault:"true"`

	// PersistDebounce is the snapshot write-coalescing window.
	PersistDebounce time.Duration `env:"CF_PERSIST_DEBOUNCE" envDefault:"100ms"`

	// Logging output knobs consumed by pkg/logger.
	LogLevel  string `env:"CF_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CF_LOG_FORMAT" envDefault:"json"`
}

var dotenvOnce sync.Once

// Load reads the optional .env file, parses the environment into a
// Config, and validates it.
func Load() (Config, error) {
	dotenvOnce.Do(func() {
		// The .env file is optional; a missing one is not an error.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure, for hosts where the
// SDK configuration is required at startup.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("customfit: failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: CF_API_KEY is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseAPIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: CF_BASE_API_URL must be an absolute http(s) URL", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.EventsPath, "/") {
		return fmt.Errorf("%w: CF_EVENTS_PATH must start with /", ErrInvalidConfig)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: CF_EVENT_QUEUE_CAPACITY must be positive", ErrInvalidConfig)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("%w: CF_FLUSH_INTERVAL must not be negative", ErrInvalidConfig)
	}
	if c.PersistDebounce <= 0 {
		return fmt.Errorf("%w: CF_PERSIST_DEBOUNCE must be positive", ErrInvalidConfig)
	}
	return nil
}

// EventsEndpoint returns the full collector events URL.
func (c Config) EventsEndpoint() string {
	return strings.TrimSuffix(c.BaseAPIURL, "/") + c.EventsPath
}

// TrackerOptions translates the configuration into tracker options. The
// host appends wiring options (storage, transport, callbacks) as needed.
func (c Config) TrackerOptions() []tracker.Option {
	return []tracker.Option{
		tracker.WithEndpoint(c.EventsEndpoint()),
		tracker.WithQueueCapacity(c.QueueCapacity),
		tracker.WithFlushInterval(c.FlushInterval),
		tracker.WithAutoFlush(c.AutoFlush),
		tracker.WithPersistDebounce(c.PersistDebounce),
	}
}
