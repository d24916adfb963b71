// CLAUDE:SUMMARY Typed error taxonomy for the ingestion pipeline, with errors.Is/As support.
package ingest

import (
	"errors"
	"fmt"
)

// Kind classifies an ingestion failure by its pipeline stage family.
type Kind int

const (
	// KindUnsupportedFormat: the file extension is outside the closed
	// format table. Raised before any file I/O.
	KindUnsupportedFormat Kind = iota + 1
	// KindStorageFailure: the original could not be persisted (or is
	// over the size limit).
	KindStorageFailure
	// KindConversionFailed: an external converter failed or produced
	// no output.
	KindConversionFailed
	// KindExtractionFailed: text extraction failed, including an OCR
	// fallback that itself failed.
	KindExtractionFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindStorageFailure:
		return "storage_failure"
	case KindConversionFailed:
		return "conversion_failed"
	case KindExtractionFailed:
		return "extraction_failed"
	default:
		return "unknown"
	}
}

// ErrEmptyExtraction signals that native extraction produced zero units.
// It is a control-flow signal inside Process (it triggers the OCR
// fallback), surfaced to the caller only when the fallback also yields
// nothing.
var ErrEmptyExtraction = errors.New("ingest: extraction produced no text units")

// Error is an ingestion failure annotated with its kind, the pipeline
// stage that raised it, and the document involved.
type Error struct {
	Kind     Kind
	Stage    string // "classify", "store", "convert", "extract", "ocr"
	Document string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s [%s] %s: %v", e.Stage, e.Kind, e.Document, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches against another *Error by kind, so callers can test
// errors.Is(err, &Error{Kind: KindConversionFailed}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Stage == "" || t.Stage == e.Stage)
}

func failed(kind Kind, stage, document string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Document: document, Err: err}
}
