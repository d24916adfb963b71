// CLAUDE:SUMMARY Extraction quality metrics for native PDF text — signals a likely scanned document.
package docpipe

import "unicode"

// ExtractionQuality captures metrics about native PDF text extraction.
// The ingestion manager falls back to OCR on an empty unit list; these
// metrics let callers audit borderline extractions after the fact.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// LikelyScanned reports whether the PDF is probably a scan with little or
// no embedded text layer.
func (q *ExtractionQuality) LikelyScanned() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// computePrintableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t) and
// U+FFFD — all markers of broken font-encoding extraction.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}
