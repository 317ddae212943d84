package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath points at the HCL pipeline declaration.
	ConfigPath string

	// MaxConcurrent overrides the pipeline's concurrency bound when > 0.
	MaxConcurrent int

	// StatusPort serves /health and /status over HTTP. 0 disables the server.
	StatusPort int

	LogFormat string
	LogLevel  string
}

// NewConfig validates the raw configuration and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
