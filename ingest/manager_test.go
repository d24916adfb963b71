package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/citeflow/citeflow/docpipe"
	"github.com/citeflow/citeflow/docstore"
)

type fakeExtractor struct {
	pdfUnits  []docpipe.TextUnit
	pdfErr    error
	docxUnits []docpipe.TextUnit
	docxErr   error
	ocrUnits  []docpipe.TextUnit
	ocrErr    error

	pdfCalls, docxCalls, ocrCalls int
	lastPDFPath                   string
}

func (f *fakeExtractor) ExtractPDF(path, docName, userID string) ([]docpipe.TextUnit, *docpipe.ExtractionQuality, error) {
	f.pdfCalls++
	f.lastPDFPath = path
	return f.pdfUnits, &docpipe.ExtractionQuality{PageCount: 1}, f.pdfErr
}

func (f *fakeExtractor) ExtractDocx(path, docName, userID string) ([]docpipe.TextUnit, error) {
	f.docxCalls++
	return f.docxUnits, f.docxErr
}

func (f *fakeExtractor) ExtractOCR(ctx context.Context, path, docName, userID string) ([]docpipe.TextUnit, error) {
	f.ocrCalls++
	return f.ocrUnits, f.ocrErr
}

type fakeConverter struct {
	officeCalls, imageCalls int
	err                     error
}

func (f *fakeConverter) writeArtifact(dest string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("%PDF-1.4 converted"), 0o644)
}

func (f *fakeConverter) OfficeToPDF(ctx context.Context, src, dest string) error {
	f.officeCalls++
	return f.writeArtifact(dest)
}

func (f *fakeConverter) ImageToPDF(ctx context.Context, src, dest string) error {
	f.imageCalls++
	return f.writeArtifact(dest)
}

type fakeObserver struct {
	metrics map[string]float64
	audits  int
	lastErr error
}

func (f *fakeObserver) Metric(name string, value float64, unit string) {
	if f.metrics == nil {
		f.metrics = map[string]float64{}
	}
	f.metrics[name] += value
}

func (f *fakeObserver) Audit(operation, userID, document string, err error, d time.Duration) {
	f.audits++
	f.lastErr = err
}

func unit(page, para int, text string) docpipe.TextUnit {
	return docpipe.TextUnit{Page: page, Paragraph: para, Text: text}
}

type testRig struct {
	m     *Manager
	ex    *fakeExtractor
	conv  *fakeConverter
	obs   *fakeObserver
	store *docstore.Store
	dir   string
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()
	store, err := docstore.Open(filepath.Join(dir, "files"), filepath.Join(dir, "catalog.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ex := &fakeExtractor{}
	conv := &fakeConverter{}
	obs := &fakeObserver{}
	m := NewManager(DefaultConfig(), store, ex, conv, WithObserver(obs))
	return &testRig{m: m, ex: ex, conv: conv, obs: obs, store: store, dir: dir}
}

func (r *testRig) writeInput(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessPDFNative(t *testing.T) {
	r := newRig(t)
	r.ex.pdfUnits = []docpipe.TextUnit{unit(1, 1, "body text")}
	src := r.writeInput(t, "doc.pdf", []byte("%PDF-1.4"))

	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.OCRFallback {
		t.Error("native extraction must not set the OCR fallback flag")
	}
	if len(res.Units) != 1 {
		t.Fatalf("units = %d, want 1", len(res.Units))
	}
	if res.PDFPath != res.File.Path {
		t.Errorf("stored PDF must be its own artifact: %q vs %q", res.PDFPath, res.File.Path)
	}
	if r.conv.officeCalls+r.conv.imageCalls != 0 {
		t.Error("PDF input must not trigger a conversion")
	}
	if r.ex.ocrCalls != 0 {
		t.Error("successful native extraction must not run OCR")
	}
	if res.Metadata.Size == "" || res.Metadata.Name != "doc.pdf" {
		t.Errorf("metadata = %+v", res.Metadata)
	}
}

func TestProcessUnsupportedFormatBeforeIO(t *testing.T) {
	r := newRig(t)
	// The file deliberately does not exist: classification must reject
	// the extension before any file I/O.
	_, err := r.m.Process(context.Background(), filepath.Join(r.dir, "notes.txt"), "alice")
	if err == nil {
		t.Fatal("expected unsupported format error")
	}
	if !errors.Is(err, &Error{Kind: KindUnsupportedFormat}) {
		t.Errorf("error kind: %v", err)
	}
	files, _ := r.store.List("alice")
	if len(files) != 0 {
		t.Error("rejected file must not be stored")
	}
}

func TestProcessOCRFallback(t *testing.T) {
	r := newRig(t)
	r.ex.pdfUnits = nil // native extraction comes back empty
	r.ex.ocrUnits = []docpipe.TextUnit{unit(1, 1, "recognized text")}
	src := r.writeInput(t, "scan.pdf", []byte("%PDF-1.4"))

	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OCRFallback {
		t.Error("empty native extraction must fall back to OCR")
	}
	if len(res.Units) != 1 || res.Units[0].Text != "recognized text" {
		t.Fatalf("units = %+v", res.Units)
	}
	if r.obs.metrics[MetricOCRFallbackCount] != 1 {
		t.Errorf("fallback metric = %v", r.obs.metrics[MetricOCRFallbackCount])
	}
}

func TestProcessEmptyAfterOCR(t *testing.T) {
	r := newRig(t)
	src := r.writeInput(t, "blank.pdf", []byte("%PDF-1.4"))

	_, err := r.m.Process(context.Background(), src, "alice")
	if err == nil {
		t.Fatal("expected empty-extraction error")
	}
	if !IsEmptyExtraction(err) {
		t.Errorf("expected ErrEmptyExtraction in chain, got %v", err)
	}
	if !errors.Is(err, &Error{Kind: KindExtractionFailed}) {
		t.Errorf("error kind: %v", err)
	}
}

func TestProcessImageConversionIdempotent(t *testing.T) {
	r := newRig(t)
	r.ex.pdfUnits = []docpipe.TextUnit{unit(1, 1, "searchable layer")}
	src := r.writeInput(t, "photo.png", []byte("fake png bytes"))

	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if r.conv.imageCalls != 1 {
		t.Fatalf("image conversions = %d, want 1", r.conv.imageCalls)
	}
	if res.PDFPath == res.File.Path {
		t.Error("image artifact must be a distinct PDF path")
	}
	if r.ex.lastPDFPath != res.PDFPath {
		t.Errorf("extraction must run on the artifact, ran on %q", r.ex.lastPDFPath)
	}

	// Re-ingesting the same bytes reuses the existing artifact.
	if _, err := r.m.Process(context.Background(), src, "alice"); err != nil {
		t.Fatal(err)
	}
	if r.conv.imageCalls != 1 {
		t.Errorf("existing artifact reconverted, calls = %d", r.conv.imageCalls)
	}
}

func TestProcessDocxDirectExtraction(t *testing.T) {
	r := newRig(t)
	r.ex.docxUnits = []docpipe.TextUnit{unit(1, 1, "docx paragraph")}
	src := r.writeInput(t, "memo.docx", []byte("zip bytes"))

	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if r.ex.docxCalls != 1 || r.ex.pdfCalls != 0 {
		t.Errorf("docx must extract directly: docx=%d pdf=%d", r.ex.docxCalls, r.ex.pdfCalls)
	}
	if r.conv.officeCalls != 1 {
		t.Errorf("docx artifact conversions = %d, want 1", r.conv.officeCalls)
	}
	if len(res.Units) != 1 {
		t.Fatalf("units = %d", len(res.Units))
	}
}

func TestProcessImageConversionFailure(t *testing.T) {
	r := newRig(t)
	r.conv.err = errors.New("tesseract exploded")
	src := r.writeInput(t, "scan.png", []byte("png bytes"))

	_, err := r.m.Process(context.Background(), src, "alice")
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	if !errors.Is(err, &Error{Kind: KindConversionFailed}) {
		t.Errorf("error kind: %v", err)
	}
	if r.obs.lastErr == nil {
		t.Error("failure must reach the audit sink")
	}
}

func TestProcessDocxArtifactBestEffort(t *testing.T) {
	r := newRig(t)
	r.conv.err = errors.New("soffice not installed")
	r.ex.docxUnits = []docpipe.TextUnit{unit(1, 1, "direct docx paragraph")}
	src := r.writeInput(t, "memo.docx", []byte("zip bytes"))

	// DOCX extracts directly from the original, so a broken office
	// converter costs only the artifact, not the ingestion.
	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatalf("docx must survive a failed artifact conversion: %v", err)
	}
	if len(res.Units) != 1 {
		t.Fatalf("units = %d, want 1", len(res.Units))
	}
	if res.PDFPath != "" {
		t.Errorf("no artifact was produced, PDFPath = %q", res.PDFPath)
	}
}

func TestProcessDocxNoArtifactNoFallback(t *testing.T) {
	r := newRig(t)
	r.conv.err = errors.New("soffice not installed")
	src := r.writeInput(t, "empty.docx", []byte("zip bytes"))

	// Empty direct extraction would fall back to OCR, but without an
	// artifact there is nothing to rasterize.
	_, err := r.m.Process(context.Background(), src, "alice")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, &Error{Kind: KindExtractionFailed}) {
		t.Errorf("error kind: %v", err)
	}
	if !IsEmptyExtraction(err) {
		t.Errorf("expected ErrEmptyExtraction in chain, got %v", err)
	}
	if r.ex.ocrCalls != 0 {
		t.Error("OCR must not run without an artifact")
	}
}

func TestProcessFileTooLarge(t *testing.T) {
	r := newRig(t)
	r.m.cfg.MaxFileMB = 1
	src := r.writeInput(t, "big.pdf", bytes.Repeat([]byte{'x'}, 2<<20))

	_, err := r.m.Process(context.Background(), src, "alice")
	if err == nil {
		t.Fatal("expected size rejection")
	}
	if !errors.Is(err, &Error{Kind: KindStorageFailure}) {
		t.Errorf("error kind: %v", err)
	}
	files, _ := r.store.List("alice")
	if len(files) != 0 {
		t.Error("oversized file must not be stored")
	}
}

func TestProcessThreePageScan(t *testing.T) {
	r := newRig(t)
	r.ex.ocrUnits = []docpipe.TextUnit{
		unit(1, 1, "page one, first paragraph"),
		unit(1, 2, "page one, second paragraph"),
		unit(2, 1, "page two"),
		unit(3, 1, "page three"),
	}
	src := r.writeInput(t, "scan.pdf", []byte("%PDF-1.4"))

	res, err := r.m.Process(context.Background(), src, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OCRFallback {
		t.Fatal("scanned document must go through OCR")
	}

	lastPage, lastPara := 0, 0
	for _, u := range res.Units {
		if u.Page < lastPage {
			t.Errorf("page numbers must be non-decreasing: %d after %d", u.Page, lastPage)
		}
		if u.Page > lastPage {
			lastPara = 0
		}
		if u.Paragraph != lastPara+1 {
			t.Errorf("page %d: paragraph %d after %d", u.Page, u.Paragraph, lastPara)
		}
		lastPage, lastPara = u.Page, u.Paragraph
	}
	if lastPage != 3 {
		t.Errorf("last page = %d, want 3", lastPage)
	}
}

func TestProcessAllCapturesPerFileErrors(t *testing.T) {
	r := newRig(t)
	r.ex.pdfUnits = []docpipe.TextUnit{unit(1, 1, "ok")}

	good := r.writeInput(t, "good.pdf", []byte("%PDF-1.4"))
	bad := filepath.Join(r.dir, "bad.txt")
	good2 := r.writeInput(t, "also-good.pdf", []byte("%PDF-1.4 two"))

	results, errs := r.m.ProcessAll(context.Background(), []string{good, bad, good2}, "alice")
	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("slot counts: %d results, %d errors", len(results), len(errs))
	}
	if results[0] == nil || errs[0] != nil {
		t.Errorf("slot 0: %+v, %v", results[0], errs[0])
	}
	if results[1] != nil || errs[1] == nil {
		t.Errorf("slot 1 must fail: %+v, %v", results[1], errs[1])
	}
	if results[2] == nil || errs[2] != nil {
		t.Errorf("slot 2: %+v, %v", results[2], errs[2])
	}
}

func TestObserverReceivesMetrics(t *testing.T) {
	r := newRig(t)
	r.ex.pdfUnits = []docpipe.TextUnit{unit(1, 1, "text")}
	src := r.writeInput(t, "doc.pdf", []byte("%PDF-1.4"))

	if _, err := r.m.Process(context.Background(), src, "alice"); err != nil {
		t.Fatal(err)
	}
	if r.obs.audits != 1 {
		t.Errorf("audits = %d, want 1", r.obs.audits)
	}
	if _, ok := r.obs.metrics[MetricIngestDurationMs]; !ok {
		t.Error("ingest duration not recorded")
	}
	if r.obs.metrics[MetricUnitsExtractedCount] != 1 {
		t.Errorf("unit count metric = %v", r.obs.metrics[MetricUnitsExtractedCount])
	}
}
