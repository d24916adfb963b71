package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadConfigMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("storage_root: /srv/docs\nocr_language: fra\nbatch_workers: 2\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageRoot != "/srv/docs" {
		t.Errorf("storage_root = %q", cfg.StorageRoot)
	}
	if cfg.OCRLanguage != "fra" {
		t.Errorf("ocr_language = %q", cfg.OCRLanguage)
	}
	if cfg.BatchWorkers != 2 {
		t.Errorf("batch_workers = %d", cfg.BatchWorkers)
	}
	// Untouched fields keep their defaults.
	if cfg.LineMergeThreshold != 80 {
		t.Errorf("line_merge_threshold default lost: %d", cfg.LineMergeThreshold)
	}
	if cfg.MinParagraphLen != 10 {
		t.Errorf("min_paragraph_len default lost: %d", cfg.MinParagraphLen)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_file_mb: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("negative max_file_mb must be rejected")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty storage root", func(c *Config) { c.StorageRoot = "" }},
		{"empty catalog path", func(c *Config) { c.CatalogDBPath = "" }},
		{"zero convert timeout", func(c *Config) { c.ConvertTimeoutSec = 0 }},
		{"zero batch workers", func(c *Config) { c.BatchWorkers = 0 }},
		{"zero merge threshold", func(c *Config) { c.LineMergeThreshold = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
		{int64(2.5 * 1024 * 1024 * 1024), "2.5 GB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.n); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
