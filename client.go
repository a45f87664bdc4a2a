package customfit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/customfit-ai/customfit-go/pkg/config"
	"github.com/customfit-ai/customfit-go/pkg/events"
	"github.com/customfit-ai/customfit-go/pkg/logger"
	"github.com/customfit-ai/customfit-go/pkg/storage"
	"github.com/customfit-ai/customfit-go/pkg/tracker"
	"github.com/customfit-ai/customfit-go/pkg/validate"
)

// Client is the assembled SDK: configuration, storage, validation, and
// the delivery pipeline wired together.
type Client struct {
	cfg     config.Config
	log     *slog.Logger
	tracker *tracker.Tracker
}

// NewClient builds a Client from environment configuration. Queue
// snapshots persist to an encrypted file store under the user cache
// directory; when that is unavailable the pipeline runs in-memory only.
// Extra tracker options override the configured defaults.
func NewClient(opts ...tracker.Option) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg, opts...)
}

// NewClientWithConfig builds a Client from an explicit configuration.
func NewClientWithConfig(cfg config.Config, opts ...tracker.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromEnv(cfg.LogLevel, cfg.LogFormat)

	base := append(cfg.TrackerOptions(),
		tracker.WithStorage(defaultStorage(cfg, log)),
		tracker.WithValidator(validate.New()),
		tracker.WithLogger(logger.Component(log, "tracker")),
	)
	t, err := tracker.New(cfg.APIKey, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, log: log, tracker: t}, nil
}

// defaultStorage picks the strongest available snapshot store: an
// AES-GCM encrypted file store keyed by the client key, falling back to
// process memory when the cache directory cannot be used.
func defaultStorage(cfg config.Config, log *slog.Logger) storage.Storage {
	dir, err := os.UserCacheDir()
	if err != nil {
		log.Warn("no user cache directory, event snapshots stay in memory", "error", err)
		return storage.NewMemory()
	}
	store, err := storage.NewFile(filepath.Join(dir, "customfit"))
	if err != nil {
		log.Warn("snapshot store unavailable, falling back to memory", "error", err)
		return storage.NewMemory()
	}
	return storage.NewPreferred(store, []byte(cfg.APIKey))
}

// Track records one analytics event. See tracker.Tracker.Track.
func (c *Client) Track(ctx context.Context, name string, props events.Properties) error {
	return c.tracker.Track(ctx, name, props)
}

// Flush delivers queued events now. See tracker.Tracker.Flush.
func (c *Client) Flush(ctx context.Context) (bool, error) {
	return c.tracker.Flush(ctx)
}

// PendingCount returns the number of queued, undelivered events.
func (c *Client) PendingCount() int {
	return c.tracker.GetPendingCount()
}

// Health reports the pipeline health snapshot.
func (c *Client) Health() tracker.HealthMetrics {
	return c.tracker.GetHealthMetrics()
}

// Close shuts the pipeline down, attempting one final delivery and
// snapshotting whatever remains.
func (c *Client) Close(ctx context.Context) error {
	return c.tracker.Shutdown(ctx)
}

// Tracker exposes the underlying pipeline for hosts that need its full
// surface.
func (c *Client) Tracker() *tracker.Tracker {
	return c.tracker
}
