// Package config defines the service configuration and its validation.
// Config files are JSON; environment references like ${WAREHOUSE_DSN} are
// expanded before decoding so secrets stay out of the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ordersetl/internal/storage"
)

// Config is the root configuration for both the API server and the one-shot
// rebuild command.
type Config struct {
	// ListenAddr is the API bind address, e.g. ":8080".
	ListenAddr string `json:"listen_addr"`

	// UploadDir is where raw uploads are kept for inspection.
	UploadDir string `json:"upload_dir"`

	// PreviewRows is how many rows table previews return.
	PreviewRows int `json:"preview_rows"`

	Storage storage.Config `json:"storage"`
	Metrics Metrics        `json:"metrics"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none" or "datadog".
	Backend string `json:"backend"`

	// Service tags every metric; defaults to "ordersetl".
	Service string `json:"service"`

	// Tags are extra backend tags as "k:v,k:v".
	Tags string `json:"tags"`
}

// Default returns the configuration used when no file is given: a local
// SQLite warehouse and no metrics.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		UploadDir:   "uploads",
		PreviewRows: 5,
		Storage:     storage.Config{Kind: "sqlite", DSN: "warehouse.db"},
		Metrics:     Metrics{Backend: "none"},
	}
}

// Load reads, env-expands and decodes a config file, then fills defaults for
// omitted fields.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	cfg := Default()
	dec := json.NewDecoder(strings.NewReader(expanded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Severity levels for validation issues.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity string
	Path     string
	Message  string
}

// Validate checks the configuration and returns all findings. The caller
// decides whether warnings are fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		issues = append(issues, Issue{SeverityError, "listen_addr", "must not be empty"})
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		issues = append(issues, Issue{SeverityError, "upload_dir", "must not be empty"})
	}
	if cfg.PreviewRows <= 0 {
		issues = append(issues, Issue{SeverityError, "preview_rows", "must be positive"})
	} else if cfg.PreviewRows > 1000 {
		issues = append(issues, Issue{SeverityWarning, "preview_rows", "very large previews defeat their purpose"})
	}

	switch cfg.Storage.Kind {
	case "sqlite", "postgres", "mssql":
	case "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind",
			fmt.Sprintf("unknown kind %q (want sqlite, postgres or mssql)", cfg.Storage.Kind)})
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "must not be empty"})
	}

	switch cfg.Metrics.Backend {
	case "", "none", "datadog":
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown backend %q (want none or datadog)", cfg.Metrics.Backend)})
	}

	return issues
}
