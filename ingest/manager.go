// CLAUDE:SUMMARY Ingestion manager: classify → store → convert → extract → OCR fallback state machine.
// CLAUDE:DEPENDS docpipe, docstore, convert, ingest/errors.go, ingest/result.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/citeflow/citeflow/docpipe"
	"github.com/citeflow/citeflow/docstore"
)

// Extractor is the text-extraction surface the manager drives.
// *docpipe.Pipeline satisfies it.
type Extractor interface {
	ExtractPDF(path, docName, userID string) ([]docpipe.TextUnit, *docpipe.ExtractionQuality, error)
	ExtractDocx(path, docName, userID string) ([]docpipe.TextUnit, error)
	ExtractOCR(ctx context.Context, path, docName, userID string) ([]docpipe.TextUnit, error)
}

// Converter produces PDF artifacts from non-PDF originals.
// *convert.Converter satisfies it.
type Converter interface {
	OfficeToPDF(ctx context.Context, src, dest string) error
	ImageToPDF(ctx context.Context, src, dest string) error
}

// Observer receives per-ingestion metrics and audit records.
type Observer interface {
	Metric(name string, value float64, unit string)
	Audit(operation, userID, document string, err error, duration time.Duration)
}

// Metric names recorded per ingestion.
const (
	MetricIngestDurationMs     = "ingest_duration_ms"
	MetricUnitsExtractedCount  = "units_extracted_count"
	MetricOCRFallbackCount     = "ocr_fallback_count"
	MetricConversionDurationMs = "conversion_duration_ms"
)

// Manager orchestrates the ingestion pipeline for one storage root.
type Manager struct {
	cfg      *Config
	store    *docstore.Store
	pipe     Extractor
	conv     Converter
	observer Observer
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver wires an audit/metrics sink into the manager.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager wires the pipeline components together.
func NewManager(cfg *Config, store *docstore.Store, pipe Extractor, conv Converter, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		store:  store,
		pipe:   pipe,
		conv:   conv,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Process ingests a single document: classify by extension, store
// content-addressed, produce a PDF artifact when the format needs one,
// extract text units, and fall back to OCR when native extraction
// yields nothing. Failures carry their pipeline stage and kind in a
// *Error.
func (m *Manager) Process(ctx context.Context, filePath, userID string) (res *Result, err error) {
	start := time.Now()
	docName := filepath.Base(filePath)
	defer func() {
		d := time.Since(start)
		if m.observer != nil {
			m.observer.Audit("process", userID, docName, err, d)
			m.observer.Metric(MetricIngestDurationMs, float64(d.Milliseconds()), "milliseconds")
			if res != nil {
				m.observer.Metric(MetricUnitsExtractedCount, float64(len(res.Units)), "count")
			}
		}
	}()

	// Classification happens on the extension alone, before any file I/O.
	format, ferr := docpipe.Detect(filepath.Ext(docName))
	if ferr != nil {
		return nil, failed(KindUnsupportedFormat, "classify", docName, ferr)
	}

	if info, serr := os.Stat(filePath); serr != nil {
		return nil, failed(KindStorageFailure, "store", docName, serr)
	} else if info.Size() > m.cfg.MaxFileBytes() {
		return nil, failed(KindStorageFailure, "store", docName,
			fmt.Errorf("file size %s exceeds limit %s",
				FormatFileSize(info.Size()), FormatFileSize(m.cfg.MaxFileBytes())))
	}

	sf, serr := m.store.StoreFile(filePath, userID)
	if serr != nil {
		return nil, failed(KindStorageFailure, "store", docName, serr)
	}

	pdfPath, cerr := m.ensureArtifact(ctx, sf, format)
	if cerr != nil {
		// DOCX extracts directly from the original; the PDF artifact only
		// serves the OCR fallback and downstream viewers. A missing or
		// broken LibreOffice must not block a format that doesn't need it.
		if format != docpipe.FormatDocx {
			return nil, cerr
		}
		m.logger.Warn("docx artifact conversion failed, continuing with direct extraction",
			"document", docName, "user", userID, "error", cerr)
		pdfPath = ""
	}

	res = &Result{
		File:     sf,
		Metadata: newMetadata(sf),
		PDFPath:  pdfPath,
	}

	switch format {
	case docpipe.FormatDocx:
		units, xerr := m.pipe.ExtractDocx(sf.Path, docName, userID)
		if xerr != nil {
			return nil, failed(KindExtractionFailed, "extract", docName, xerr)
		}
		res.Units = units
	default:
		units, quality, xerr := m.pipe.ExtractPDF(pdfPath, docName, userID)
		if xerr != nil {
			return nil, failed(KindExtractionFailed, "extract", docName, xerr)
		}
		res.Units = units
		res.Quality = quality
	}

	if len(res.Units) == 0 {
		// Native extraction came back empty: the document is likely a
		// scan. Run the OCR pass over the PDF artifact instead.
		if pdfPath == "" {
			return nil, failed(KindExtractionFailed, "ocr", docName,
				fmt.Errorf("no PDF artifact available for OCR fallback: %w", ErrEmptyExtraction))
		}
		m.logger.Info("native extraction empty, falling back to OCR",
			"document", docName, "user", userID)
		units, oerr := m.pipe.ExtractOCR(ctx, pdfPath, docName, userID)
		if oerr != nil {
			return nil, failed(KindExtractionFailed, "ocr", docName, oerr)
		}
		if len(units) == 0 {
			return nil, failed(KindExtractionFailed, "ocr", docName, ErrEmptyExtraction)
		}
		res.Units = units
		res.OCRFallback = true
		if m.observer != nil {
			m.observer.Metric(MetricOCRFallbackCount, 1, "count")
		}
	}

	res.DurationMs = time.Since(start).Milliseconds()
	m.logger.Info("document ingested",
		"document", docName, "user", userID, "format", format,
		"units", len(res.Units), "ocr_fallback", res.OCRFallback,
		"duration_ms", res.DurationMs)
	return res, nil
}

// ensureArtifact resolves the PDF artifact path for a stored file,
// running the appropriate converter when the artifact does not exist
// yet. Stored PDFs are their own artifact. Conversion is idempotent:
// an existing artifact is reused as-is.
func (m *Manager) ensureArtifact(ctx context.Context, sf *docstore.StoredFile, format docpipe.Format) (string, error) {
	if format == docpipe.FormatPDF {
		return sf.Path, nil
	}

	artifact := m.store.ArtifactPath(sf)
	if m.store.HasArtifact(sf) {
		m.logger.Debug("artifact already present", "path", artifact)
		return artifact, nil
	}

	start := time.Now()
	var err error
	switch format {
	case docpipe.FormatImage:
		err = m.conv.ImageToPDF(ctx, sf.Path, artifact)
	case docpipe.FormatDocx:
		err = m.conv.OfficeToPDF(ctx, sf.Path, artifact)
	default:
		err = fmt.Errorf("no converter for format %q", format)
	}
	if err != nil {
		return "", failed(KindConversionFailed, "convert", sf.Name, err)
	}
	if m.observer != nil {
		m.observer.Metric(MetricConversionDurationMs, float64(time.Since(start).Milliseconds()), "milliseconds")
	}
	return artifact, nil
}

// IsEmptyExtraction reports whether err means the document produced no
// text even after the OCR fallback.
func IsEmptyExtraction(err error) bool {
	return errors.Is(err, ErrEmptyExtraction)
}
