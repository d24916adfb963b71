// CLAUDE:SUMMARY Image to searchable-PDF conversion: decode validation plus Tesseract PDF renderer.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ValidateImage decodes the image header to confirm the file really is a
// supported raster format before an OCR pass is paid for it. Returns the
// detected format name (jpeg, png, gif, tiff, bmp, webp).
func ValidateImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("convert: open image: %w", err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("convert: not a decodable image: %w", err)
	}
	return format, nil
}

// ImageToPDF renders the image at srcPath into a searchable PDF at
// destPath using Tesseract's pdf renderer: the page shows the original
// raster with the recognized text in an invisible layer behind it.
func (c *Converter) ImageToPDF(ctx context.Context, srcPath, destPath string) error {
	format, err := ValidateImage(srcPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// Tesseract appends .pdf to the output base itself.
	outBase := strings.TrimSuffix(destPath, ".pdf") + ".tmp"
	defer os.Remove(outBase + ".pdf")

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.cfg.TesseractPath,
		srcPath, outBase, "-l", c.cfg.OCRLanguage, "pdf")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &Error{Tool: "tesseract", Output: strings.TrimSpace(out.String()), Err: err}
	}

	produced := outBase + ".pdf"
	if _, err := os.Stat(produced); err != nil {
		return &Error{
			Tool:   "tesseract",
			Output: strings.TrimSpace(out.String()),
			Err:    fmt.Errorf("no PDF produced for %s", filepath.Base(srcPath)),
		}
	}
	if err := os.Rename(produced, destPath); err != nil {
		return fmt.Errorf("convert: place artifact: %w", err)
	}

	c.cfg.Logger.Debug("image conversion done",
		"src", srcPath, "format", format, "dest", destPath,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
