// Package config - explicit runtime configuration for the dataset tools.
package config

import "github.com/pkg/errors"

// Config enumerates the recognized settings. It is resolved once, before the
// dataset index is constructed.
type Config struct {
	// DataDir is the dataset root directory, one subdirectory per class.
	DataDir string
	// RemoteSource optionally names a remote dataset (URL or Kaggle slug) to
	// download when DataDir does not exist.
	RemoteSource string
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	return nil
}
