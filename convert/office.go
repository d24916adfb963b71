// CLAUDE:SUMMARY DOCX/DOC to PDF conversion through headless LibreOffice.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// OfficeToPDF converts an office document (docx, doc) at srcPath into a
// PDF at destPath. LibreOffice names its output after the source file, so
// the conversion runs in a private temp directory and the result is
// renamed onto destPath afterwards.
func (c *Converter) OfficeToPDF(ctx context.Context, srcPath, destPath string) error {
	outDir, err := os.MkdirTemp(filepath.Dir(destPath), ".soffice-*")
	if err != nil {
		return fmt.Errorf("convert: create work dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.cfg.SofficePath,
		"--headless", "--convert-to", "pdf", "--outdir", outDir, srcPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &Error{Tool: "soffice", Output: strings.TrimSpace(out.String()), Err: err}
	}

	// soffice exits 0 even for some inputs it could not convert.
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	produced := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(produced); err != nil {
		return &Error{
			Tool:   "soffice",
			Output: strings.TrimSpace(out.String()),
			Err:    fmt.Errorf("no PDF produced for %s", filepath.Base(srcPath)),
		}
	}

	if err := os.Rename(produced, destPath); err != nil {
		return fmt.Errorf("convert: place artifact: %w", err)
	}

	c.cfg.Logger.Debug("office conversion done",
		"src", srcPath, "dest", destPath, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
