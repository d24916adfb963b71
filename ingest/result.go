// CLAUDE:SUMMARY Ingestion result and file metadata summary, with human-readable sizes.
package ingest

import (
	"fmt"

	"github.com/citeflow/citeflow/docpipe"
	"github.com/citeflow/citeflow/docstore"
)

// Metadata summarizes the stored original for display.
type Metadata struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Size      string `json:"size"` // human-readable, e.g. "1.4 MB"
	SizeBytes int64  `json:"size_bytes"`
	Created   string `json:"created"`
}

// Result is the full outcome of ingesting one document.
type Result struct {
	File     *docstore.StoredFile        `json:"file"`
	Metadata Metadata                    `json:"metadata"`
	PDFPath  string                      `json:"pdf_path,omitempty"`
	Units    []docpipe.TextUnit          `json:"units"`
	Quality  *docpipe.ExtractionQuality  `json:"quality,omitempty"`
	// OCRFallback is set when native extraction yielded nothing and the
	// units came from the OCR pass instead.
	OCRFallback bool  `json:"ocr_fallback"`
	DurationMs  int64 `json:"duration_ms"`
}

func newMetadata(sf *docstore.StoredFile) Metadata {
	return Metadata{
		Name:      sf.Name,
		Extension: sf.Ext,
		Size:      FormatFileSize(sf.SizeBytes),
		SizeBytes: sf.SizeBytes,
		Created:   sf.CreatedAt,
	}
}

// FormatFileSize renders a byte count as a human-readable string with
// one decimal, using 1024-based units up to GB.
func FormatFileSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1024*1024*1024))
	}
}
