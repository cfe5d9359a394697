package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `{"listen_addr": ":9090"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen_addr = %s", cfg.ListenAddr)
	}
	if cfg.Storage.Kind != "sqlite" || cfg.PreviewRows != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("WAREHOUSE_DSN", "postgres://etl:secret@db/warehouse")
	path := writeConfig(t, `{"storage": {"kind": "postgres", "dsn": "${WAREHOUSE_DSN}"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DSN != "postgres://etl:secret@db/warehouse" {
		t.Fatalf("dsn = %s", cfg.Storage.DSN)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{"listen_adr": ":8080"}`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for misspelled field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("want error")
	}
}

func TestValidate(t *testing.T) {
	if issues := Validate(Default()); len(issues) != 0 {
		t.Fatalf("default config should validate: %v", issues)
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		path     string
		severity string
	}{
		{
			name:     "empty listen addr",
			mutate:   func(c *Config) { c.ListenAddr = " " },
			path:     "listen_addr",
			severity: SeverityError,
		},
		{
			name:     "empty upload dir",
			mutate:   func(c *Config) { c.UploadDir = "" },
			path:     "upload_dir",
			severity: SeverityError,
		},
		{
			name:     "zero preview rows",
			mutate:   func(c *Config) { c.PreviewRows = 0 },
			path:     "preview_rows",
			severity: SeverityError,
		},
		{
			name:     "huge preview rows",
			mutate:   func(c *Config) { c.PreviewRows = 5000 },
			path:     "preview_rows",
			severity: SeverityWarning,
		},
		{
			name:     "unknown storage kind",
			mutate:   func(c *Config) { c.Storage.Kind = "oracle" },
			path:     "storage.kind",
			severity: SeverityError,
		},
		{
			name:     "empty dsn",
			mutate:   func(c *Config) { c.Storage.DSN = "" },
			path:     "storage.dsn",
			severity: SeverityError,
		},
		{
			name:     "unknown metrics backend",
			mutate:   func(c *Config) { c.Metrics.Backend = "statsd" },
			path:     "metrics.backend",
			severity: SeverityError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			issues := Validate(cfg)
			for _, is := range issues {
				if is.Path == tc.path && is.Severity == tc.severity {
					return
				}
			}
			t.Fatalf("no %s issue for %s in %v", tc.severity, tc.path, issues)
		})
	}
}
