// CLAUDE:SUMMARY Configuration struct and defaults for the docpipe extractors.
package docpipe

import (
	"log/slog"

	"github.com/citeflow/citeflow/idgen"
)

// Config configures the extraction pipeline.
type Config struct {
	// MinParagraphLen is the minimum trimmed length, in runes, for an OCR
	// paragraph to be kept (default: 10).
	MinParagraphLen int `json:"min_paragraph_len" yaml:"min_paragraph_len"`

	// LineMergeThreshold is the character count at which consecutive short
	// lines are flushed as one paragraph when a PDF page carries no usable
	// block geometry (default: 80). Tunable, not a contract.
	LineMergeThreshold int `json:"line_merge_threshold" yaml:"line_merge_threshold"`

	// OCRLanguage is the Tesseract language code (default: "eng").
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language"`

	// DefaultFontSizePt is assumed for DOCX runs without an explicit size
	// (default: 11).
	DefaultFontSizePt float64 `json:"default_font_size_pt" yaml:"default_font_size_pt"`

	// Recognizer performs text recognition for the OCR extractor.
	// Defaults to the Tesseract-backed recognizer.
	Recognizer Recognizer `json:"-" yaml:"-"`

	// NewID generates TextUnit IDs. Defaults to prefixed UUIDv7.
	NewID idgen.Generator `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MinParagraphLen <= 0 {
		c.MinParagraphLen = 10
	}
	if c.LineMergeThreshold <= 0 {
		c.LineMergeThreshold = 80
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = "eng"
	}
	if c.DefaultFontSizePt <= 0 {
		c.DefaultFontSizePt = 11
	}
	if c.Recognizer == nil {
		c.Recognizer = NewTesseractRecognizer(c.OCRLanguage)
	}
	if c.NewID == nil {
		c.NewID = idgen.Prefixed("unit_", idgen.Default)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
