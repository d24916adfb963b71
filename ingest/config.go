// CLAUDE:SUMMARY YAML pipeline configuration with defaults and validation.
package ingest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration.
type Config struct {
	StorageRoot   string `yaml:"storage_root"`
	CatalogDBPath string `yaml:"catalog_db_path"`
	ObsDBPath     string `yaml:"observability_db_path"`

	SofficePath   string `yaml:"soffice_path"`
	TesseractPath string `yaml:"tesseract_path"`
	OCRLanguage   string `yaml:"ocr_language"`

	MaxFileMB          int `yaml:"max_file_mb"`
	MinParagraphLen    int `yaml:"min_paragraph_len"`
	LineMergeThreshold int `yaml:"line_merge_threshold"`
	ConvertTimeoutSec  int `yaml:"convert_timeout_sec"`
	// BatchWorkers bounds concurrent Process calls in ProcessAll.
	// Headless LibreOffice tolerates a single instance, hence 1.
	BatchWorkers int `yaml:"batch_workers"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		StorageRoot:        "data/files",
		CatalogDBPath:      "data/catalog.db",
		ObsDBPath:          "data/observability.db",
		SofficePath:        "soffice",
		TesseractPath:      "tesseract",
		OCRLanguage:        "eng",
		MaxFileMB:          100,
		MinParagraphLen:    10,
		LineMergeThreshold: 80,
		ConvertTimeoutSec:  120,
		BatchWorkers:       1,
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root is required")
	}
	if c.CatalogDBPath == "" {
		return fmt.Errorf("catalog_db_path is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.MinParagraphLen < 0 {
		return fmt.Errorf("min_paragraph_len must be >= 0")
	}
	if c.LineMergeThreshold <= 0 {
		return fmt.Errorf("line_merge_threshold must be > 0")
	}
	if c.ConvertTimeoutSec <= 0 {
		return fmt.Errorf("convert_timeout_sec must be > 0")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("batch_workers must be > 0")
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }

// ConvertTimeout returns the per-conversion timeout.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.ConvertTimeoutSec) * time.Second
}
