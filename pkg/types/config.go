// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fulltext/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RateConfig holds the per-source admission quota settings. The limits
// apply independently to every source kind.
type RateConfig struct {
	// RequestLimit is the maximum number of admitted requests per source
	// before a cooldown starts (default 450).
	RequestLimit int `json:"request_limit" yaml:"request_limit"`

	// Cooldown is how long a source stays blocked after hitting the
	// request limit (default 90s).
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// HarvestConfig holds settings for the full-text harvest stage.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// Rate configures the shared per-source rate gate.
	Rate RateConfig `json:"rate" yaml:"rate"`

	// OutputDir is the base directory for harvested artifacts. Each
	// collection gets a subdirectory named after it.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Email identifies the operator to polite-pool APIs (Unpaywall).
	Email string `json:"email" yaml:"email"`

	// SecretsDir is the directory of per-file API credentials.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`

	// IndexPath is the acquisition index database path. Empty selects
	// OutputDir/harvest.db.
	IndexPath string `json:"index_path,omitempty" yaml:"index_path,omitempty"`

	// CollectionDelay is the pause between consecutive collection files
	// (default 2s).
	CollectionDelay time.Duration `json:"collection_delay" yaml:"collection_delay"`
}
