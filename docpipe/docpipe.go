// CLAUDE:SUMMARY Extraction engine: extension classification plus PDF, DOCX and OCR extractors.
// Package docpipe turns stored documents into ordered, citation-tagged
// text units.
//
// Supported formats:
//   - .pdf                       — native text extraction (positioned blocks)
//   - .docx, .doc                — structural extraction (heading heuristic)
//   - .jpg .jpeg .png .tiff
//     .bmp .gif .webp            — OCR after conversion to a searchable PDF
//
// Classification is a pure extension lookup and happens before any file
// I/O. Each extractor returns the same shape: an ordered []TextUnit with
// page and paragraph numbers that never decrease in emission order.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	units, quality, err := pipe.ExtractPDF("/path/to/file.pdf", "file.pdf", "u1")
package docpipe

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnsupportedFormat is returned by Detect for extensions outside the
// supported table.
var ErrUnsupportedFormat = errors.New("unsupported format")

// extTable is the authoritative extension→format mapping.
var extTable = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDocx,
	".doc":  FormatDocx,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".png":  FormatImage,
	".tiff": FormatImage,
	".bmp":  FormatImage,
	".gif":  FormatImage,
	".webp": FormatImage,
}

// Detect maps a file extension (with leading dot, any case) to a Format.
// Unknown extensions fail with ErrUnsupportedFormat; no file I/O occurs.
func Detect(ext string) (Format, error) {
	if f, ok := extTable[strings.ToLower(ext)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// SupportedExtensions returns the closed extension table, sorted by format.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".jpg", ".jpeg", ".png", ".tiff", ".bmp", ".gif", ".webp"}
}

// Pipeline is the extraction engine. One Pipeline is safe for concurrent
// use across documents; extractors share no mutable state.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	// rasterize turns a PDF into per-page raster images for OCR.
	// Tests substitute a fake so the OCR paging logic is drivable
	// without a real scanned PDF.
	rasterize func(path, outDir string) ([]string, error)
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:       cfg,
		logger:    cfg.Logger,
		rasterize: rasterizePDFPages,
	}
}
