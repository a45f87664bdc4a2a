// Package config loads SDK configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
// an optional `.env` file is read first, then the environment is parsed
// into the Config struct using field tags. Every knob has a sensible
// default, so only CF_API_KEY is required.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatalf("loading config: %v", err)
//	}
//
//	t, err := tracker.New(cfg.APIKey, cfg.TrackerOptions()...)
package config
