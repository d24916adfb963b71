// CLAUDE:SUMMARY DOCX structural extractor — font-size/boldness heading heuristic over word/document.xml.
package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// maxXMLDepth bounds element nesting while walking document.xml.
// XML bomb / billion laughs defense.
const maxXMLDepth = 256

// docxParagraph is one <w:p> with the run properties the heading
// heuristic needs.
type docxParagraph struct {
	text     string
	avgSize  float64
	boldRuns int
}

// ExtractDocx walks the document's paragraphs and emits one unit per
// non-blank paragraph. A paragraph is classified as a heading when all of:
// word count <= 10, average run font size exceeding both neighbours' by at
// least 1pt, and at least one bold run. Each heading increments a simulated
// page counter and resets the paragraph counter to 1.
func (p *Pipeline) ExtractDocx(path, docName, userID string) ([]TextUnit, error) {
	paras, err := p.readDocxParagraphs(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	var units []TextUnit
	page := 1
	paraNum := 0
	for i, para := range paras {
		if p.isHeading(paras, i) {
			page++
			paraNum = 1
			units = append(units, p.newDocxUnit(para, docName, userID, page, paraNum, true))
			continue
		}
		paraNum++
		units = append(units, p.newDocxUnit(para, docName, userID, page, paraNum, false))
	}

	p.logger.Debug("docx extracted", "document", docName, "paragraphs", len(units))
	return units, nil
}

func (p *Pipeline) newDocxUnit(para docxParagraph, docName, userID string, page, paraNum int, heading bool) TextUnit {
	return TextUnit{
		ID:           p.cfg.NewID(),
		UserID:       userID,
		DocumentName: docName,
		Page:         page,
		Paragraph:    paraNum,
		Text:         para.text,
		Heading:      heading,
	}
}

// isHeading applies the heading heuristic to paras[i]. A missing neighbour
// at the document boundary is stood in by the paragraph's own size, which
// makes the size condition fail there.
func (p *Pipeline) isHeading(paras []docxParagraph, i int) bool {
	para := paras[i]
	if len(strings.Fields(para.text)) > 10 {
		return false
	}
	if para.boldRuns == 0 {
		return false
	}
	prev, next := para.avgSize, para.avgSize
	if i > 0 {
		prev = paras[i-1].avgSize
	}
	if i < len(paras)-1 {
		next = paras[i+1].avgSize
	}
	return para.avgSize >= prev+1 && para.avgSize >= next+1
}

// readDocxParagraphs parses word/document.xml from the ZIP archive into
// non-blank paragraphs with averaged run font sizes and bold-run counts.
// Blank paragraphs are skipped here so they never count as neighbours.
func (p *Pipeline) readDocxParagraphs(path string) ([]docxParagraph, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var paras []docxParagraph
	var text strings.Builder
	var runSizes []float64
	var boldRuns int

	depth := 0
	inParagraph := false
	inRun := false
	inRunProps := false
	runSize := 0.0 // pt; 0 = not declared for this run
	runBold := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return nil, fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
			}
			switch t.Name.Local {
			case "p":
				inParagraph = true
				text.Reset()
				runSizes = runSizes[:0]
				boldRuns = 0
			case "r":
				if inParagraph {
					inRun = true
					runSize = 0
					runBold = false
				}
			case "rPr":
				inRunProps = inRun
			case "sz":
				if inRunProps {
					// w:sz values are half-points.
					if v, ok := attrVal(t, "val"); ok {
						if hp, err := strconv.ParseFloat(v, 64); err == nil {
							runSize = hp / 2
						}
					}
				}
			case "b":
				if inRunProps {
					runBold = boolAttr(t)
				}
			}

		case xml.CharData:
			if inParagraph {
				text.Write(t)
			}

		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "rPr":
				inRunProps = false
			case "r":
				if inRun {
					size := runSize
					if size == 0 {
						size = p.cfg.DefaultFontSizePt
					}
					runSizes = append(runSizes, size)
					if runBold {
						boldRuns++
					}
					inRun = false
				}
			case "p":
				if inParagraph {
					inParagraph = false
					trimmed := strings.TrimSpace(text.String())
					if trimmed == "" {
						continue
					}
					paras = append(paras, docxParagraph{
						text:     trimmed,
						avgSize:  avgOrDefault(runSizes, p.cfg.DefaultFontSizePt),
						boldRuns: boldRuns,
					})
				}
			}
		}
	}

	return paras, nil
}

func avgOrDefault(sizes []float64, def float64) float64 {
	if len(sizes) == 0 {
		return def
	}
	sum := 0.0
	for _, s := range sizes {
		sum += s
	}
	return sum / float64(len(sizes))
}

func attrVal(t xml.StartElement, name string) (string, bool) {
	for _, attr := range t.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

// boolAttr interprets a toggle property element: <w:b/> means on,
// <w:b w:val="0"/> (or "false"/"none") means off.
func boolAttr(t xml.StartElement) bool {
	v, ok := attrVal(t, "val")
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "none", "off":
		return false
	}
	return true
}
