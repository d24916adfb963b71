package convert

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeScript installs an executable fake tool and returns its path.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
}

func TestOfficeToPDF(t *testing.T) {
	// Fake soffice: last arg is the source; writes <base>.pdf into the
	// directory given after --outdir.
	script := writeScript(t, "soffice", `
outdir=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--outdir" ]; then outdir="$a"; fi
  prev="$a"
  src="$a"
done
base=$(basename "$src")
base="${base%.*}"
printf '%%PDF-1.4 fake' > "$outdir/$base.pdf"`)

	dir := t.TempDir()
	src := filepath.Join(dir, "report.docx")
	os.WriteFile(src, []byte("docx bytes"), 0o644)
	dest := filepath.Join(dir, "report.pdf")

	c := New(Config{SofficePath: script})
	if err := c.OfficeToPDF(context.Background(), src, dest); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "%PDF") {
		t.Errorf("artifact content = %q", raw)
	}
}

func TestOfficeToPDFToolFailure(t *testing.T) {
	script := writeScript(t, "soffice", `echo "Error: source file could not be loaded" >&2; exit 1`)

	dir := t.TempDir()
	src := filepath.Join(dir, "broken.docx")
	os.WriteFile(src, []byte("x"), 0o644)

	c := New(Config{SofficePath: script})
	err := c.OfficeToPDF(context.Background(), src, filepath.Join(dir, "broken.pdf"))
	if err == nil {
		t.Fatal("expected failure")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if !strings.Contains(cerr.Output, "could not be loaded") {
		t.Errorf("tool output not captured: %q", cerr.Output)
	}
}

func TestOfficeToPDFSilentNoOutput(t *testing.T) {
	// soffice exits 0 without producing a PDF.
	script := writeScript(t, "soffice", `exit 0`)

	dir := t.TempDir()
	src := filepath.Join(dir, "odd.docx")
	os.WriteFile(src, []byte("x"), 0o644)

	c := New(Config{SofficePath: script})
	err := c.OfficeToPDF(context.Background(), src, filepath.Join(dir, "odd.pdf"))
	if err == nil {
		t.Fatal("expected error when no PDF is produced")
	}
	if !strings.Contains(err.Error(), "no PDF produced") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestImageToPDF(t *testing.T) {
	// Fake tesseract: args are <src> <outbase> -l <lang> pdf.
	script := writeScript(t, "tesseract", `printf '%%PDF-1.4 ocr' > "$2.pdf"`)

	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	writePNG(t, src)
	dest := filepath.Join(dir, "scan.pdf")

	c := New(Config{TesseractPath: script})
	if err := c.ImageToPDF(context.Background(), src, dest); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	// The temp output base must not survive.
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp.pdf"))
	if len(leftovers) != 0 {
		t.Errorf("temp artifacts left behind: %v", leftovers)
	}
}

func TestImageToPDFRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fake.png")
	os.WriteFile(src, []byte("this is not an image"), 0o644)

	c := New(Config{TesseractPath: "/nonexistent"})
	err := c.ImageToPDF(context.Background(), src, filepath.Join(dir, "fake.pdf"))
	if err == nil {
		t.Fatal("expected decode validation to fail")
	}
	if !strings.Contains(err.Error(), "decodable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ok.png")
	writePNG(t, src)

	format, err := ValidateImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
}
