// CLAUDE:SUMMARY Defines Format and TextUnit, the citation-tagged extraction output type.
package docpipe

// Format identifies a supported document kind.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatImage Format = "image"
)

// TextUnit is one citation-tagged segment of extracted text. It is the
// atomic output of every extractor: the indexing side consumes units as-is
// and must not re-derive page or paragraph numbers.
//
// Paragraph is 1-based. A Paragraph of -1 marks a sentinel unit: a
// page-level extraction failure represented as data, with the error
// message in Text, so that partial results keep flowing.
type TextUnit struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"user_id"`
	DocumentName string `json:"document_name"`
	Page         int    `json:"page"`
	Paragraph    int    `json:"paragraph"`
	Text         string `json:"text"`
	Heading      bool   `json:"heading,omitempty"`
	CharStart    int    `json:"char_start,omitempty"`
	CharEnd      int    `json:"char_end,omitempty"`
}

// Sentinel reports whether the unit represents a page-level extraction
// failure rather than real content.
func (u *TextUnit) Sentinel() bool { return u.Paragraph == -1 }
