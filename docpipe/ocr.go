// CLAUDE:SUMMARY OCR extractor — pdfcpu page rasters recognized via Tesseract, blank-line paragraph split.
// CLAUDE:DEPENDS docpipe/pdf.go
package docpipe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Recognizer turns a raster image into text. The production implementation
// is Tesseract-backed; tests substitute a fake.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// tesseractRecognizer recognizes text through the Tesseract C API.
type tesseractRecognizer struct {
	lang string
}

// NewTesseractRecognizer returns the default gosseract-backed Recognizer
// for the given language code (e.g. "eng").
func NewTesseractRecognizer(lang string) Recognizer {
	return &tesseractRecognizer{lang: lang}
}

func (t *tesseractRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if t.lang != "" {
		if err := client.SetLanguage(t.lang); err != nil {
			return "", fmt.Errorf("set language %q: %w", t.lang, err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

// ExtractOCR runs text recognition over a document. A multi-page PDF is
// rasterized page by page first; a single image file is one page. The
// recognized text is split on blank lines into candidate paragraphs;
// paragraphs shorter than MinParagraphLen (trimmed) are dropped. Char
// offsets accumulate per page with a 2-character separator allowance.
//
// This is the fallback the manager invokes when native PDF extraction
// yields zero units — a "PDF" may in fact be a scan with no text layer.
func (p *Pipeline) ExtractOCR(ctx context.Context, path, docName, userID string) ([]TextUnit, error) {
	var pages []string

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		tmpDir, err := os.MkdirTemp("", "citeflow-ocr-*")
		if err != nil {
			return nil, fmt.Errorf("temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		pages, err = p.rasterize(path, tmpDir)
		if err != nil {
			return nil, fmt.Errorf("rasterize %s: %w", path, err)
		}
	} else {
		pages = []string{path}
	}

	var units []TextUnit
	for i, imgPath := range pages {
		pageNr := i + 1
		if imgPath == "" {
			// Page carried no raster; nothing to recognize.
			continue
		}
		text, err := p.cfg.Recognizer.Recognize(ctx, imgPath)
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", pageNr, err)
		}

		charOffset := 0
		paraNum := 0
		for _, para := range splitOCRParagraphs(text, p.cfg.MinParagraphLen) {
			paraNum++
			n := len([]rune(para))
			units = append(units, TextUnit{
				ID:           p.cfg.NewID(),
				UserID:       userID,
				DocumentName: docName,
				Page:         pageNr,
				Paragraph:    paraNum,
				Text:         para,
				CharStart:    charOffset,
				CharEnd:      charOffset + n,
			})
			charOffset += n + 2
		}
	}

	p.logger.Debug("ocr extracted", "document", docName, "pages", len(pages), "units", len(units))
	return units, nil
}

// splitOCRParagraphs splits recognized text on blank-line boundaries and
// keeps paragraphs whose trimmed length is at least minLen runes.
func splitOCRParagraphs(text string, minLen int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= minLen {
			out = append(out, p)
		}
	}
	return out
}

// rasterizePDFPages writes each page's raster image to outDir and returns
// one path per page, in page order. Pages without an image stream yield an
// empty slot so page numbering stays stable.
func rasterizePDFPages(path, outDir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		imgs, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d images: %w", pageNr, err)
		}
		if len(imgs) == 0 {
			continue
		}
		// A scanned page carries one full-page image; take the lowest
		// object number for determinism when there are several.
		objNrs := make([]int, 0, len(imgs))
		for objNr := range imgs {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)
		img := imgs[objNrs[0]]

		out := filepath.Join(outDir, fmt.Sprintf("page_%d.%s", pageNr, img.FileType))
		if err := writeImage(out, img); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		pages[pageNr-1] = out
	}
	return pages, nil
}

func writeImage(path string, img model.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, img); err != nil {
		return fmt.Errorf("write raster: %w", err)
	}
	return nil
}
