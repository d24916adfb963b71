// CLAUDE:SUMMARY External-tool converters turning office documents and images into PDF artifacts.
// CLAUDE:DEPENDS convert/office.go, convert/image.go
// Package convert produces PDF artifacts from non-PDF originals by
// shelling out to LibreOffice and Tesseract. Both converters write to a
// temporary location first and rename the finished PDF into place, so a
// crashed or cancelled conversion never leaves a half-written artifact
// at the destination path.
package convert

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds the external tool locations and limits.
type Config struct {
	// SofficePath is the LibreOffice binary. Defaults to "soffice".
	SofficePath string
	// TesseractPath is the Tesseract binary. Defaults to "tesseract".
	TesseractPath string
	// OCRLanguage is passed to tesseract -l. Defaults to "eng".
	OCRLanguage string
	// Timeout bounds a single conversion. Defaults to 2 minutes.
	Timeout time.Duration

	Logger *slog.Logger
}

func (c Config) defaults() Config {
	if c.SofficePath == "" {
		c.SofficePath = "soffice"
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = "eng"
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Converter runs external conversions with a shared configuration.
type Converter struct {
	cfg Config
}

// New returns a Converter with defaults applied.
func New(cfg Config) *Converter {
	return &Converter{cfg: cfg.defaults()}
}

// Error carries the failing tool's combined output alongside the cause.
type Error struct {
	Tool   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("convert: %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("convert: %s: %v\noutput: %s", e.Tool, e.Err, e.Output)
}

func (e *Error) Unwrap() error { return e.Err }
