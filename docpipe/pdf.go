// CLAUDE:SUMMARY Native PDF extractor using pdfcpu — positioned text blocks sorted into reading order.
// CLAUDE:DEPENDS docpipe/quality.go
package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// textBlock is a run of shown text anchored at a content-stream position.
// top grows downward (smaller = higher on the page), left grows rightward.
type textBlock struct {
	top  float64
	left float64
	text string
}

// ExtractPDF extracts text units from a native PDF. Blocks on each page are
// sorted top-to-bottom then left-to-right to approximate reading order;
// paragraph numbers restart at 1 per page.
//
// A page-level parse error never aborts the document: it becomes one
// sentinel unit (paragraph -1) for that page and extraction continues.
// Returns the units together with extraction quality metrics.
func (p *Pipeline) ExtractPDF(path, docName, userID string) ([]TextUnit, *ExtractionQuality, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	units, totalChars := p.extractPages(docName, userID, ctx.PageCount, func(pageNr int) ([]textBlock, error) {
		return p.pageBlocks(ctx, pageNr)
	})

	quality := &ExtractionQuality{
		PageCount:       ctx.PageCount,
		HasImageStreams: detectImageStreams(ctx),
	}
	if ctx.PageCount > 0 {
		quality.CharsPerPage = float64(totalChars) / float64(ctx.PageCount)
	}
	quality.PrintableRatio = computePrintableRatio(joinUnitText(units))

	return units, quality, nil
}

// extractPages walks pages 1..pageCount, turning each page's blocks into
// units. A failing page contributes exactly one sentinel unit (paragraph
// -1, error message as text) and the walk continues: one bad page never
// costs the rest of the document. Returns the units and the total rune
// count of real content.
func (p *Pipeline) extractPages(docName, userID string, pageCount int, blocksFor func(pageNr int) ([]textBlock, error)) ([]TextUnit, int) {
	var units []TextUnit
	totalChars := 0

	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		blocks, err := blocksFor(pageNr)
		if err != nil {
			p.logger.Warn("pdf page extraction failed", "document", docName, "page", pageNr, "error", err)
			units = append(units, TextUnit{
				ID:           p.cfg.NewID(),
				UserID:       userID,
				DocumentName: docName,
				Page:         pageNr,
				Paragraph:    -1,
				Text:         fmt.Sprintf("page %d extraction failed: %v", pageNr, err),
			})
			continue
		}

		sortBlocks(blocks)

		para := 0
		for _, b := range blocks {
			text := strings.TrimSpace(b.text)
			if text == "" {
				continue
			}
			totalChars += len([]rune(text))
			para++
			units = append(units, TextUnit{
				ID:           p.cfg.NewID(),
				UserID:       userID,
				DocumentName: docName,
				Page:         pageNr,
				Paragraph:    para,
				Text:         text,
			})
		}
	}
	return units, totalChars
}

// pageBlocks parses one page's content stream into positioned blocks.
// Pages without usable geometry (a single anchored run, typical of
// generators that emit one Tm for the whole page) degrade to line
// grouping with the configured merge threshold.
func (p *Pipeline) pageBlocks(ctx *model.Context, pageNr int) ([]textBlock, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content stream: %w", err)
	}
	blocks := parseBlocks(data)
	if len(blocks) <= 1 {
		return mergeIntoBlocks(blocks, p.cfg.LineMergeThreshold), nil
	}
	return blocks, nil
}

// sortBlocks orders blocks top-to-bottom, then left-to-right. The sort is
// stable so blocks sharing an anchor keep their emission order.
func sortBlocks(blocks []textBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].top != blocks[j].top {
			return blocks[i].top < blocks[j].top
		}
		return blocks[i].left < blocks[j].left
	})
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// parseBlocks walks content-stream operators, tracking the text position
// set by Td/TD/Tm. Every positioning operator closes the current block and
// anchors a new one; show-text operators append to the open block.
func parseBlocks(data []byte) []textBlock {
	var blocks []textBlock
	var cur strings.Builder
	var x, y float64

	flush := func() {
		if cur.Len() > 0 {
			blocks = append(blocks, textBlock{top: -y, left: x, text: cleanText(cur.String())})
			cur.Reset()
		}
	}

	lines := bytes.Split(data, []byte{'\n'})
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("BT")):
			flush()
			x, y = 0, 0

		// Td/TD translate the text line origin relative to the current one.
		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			if dx, dy, ok := lastOperands2(line); ok {
				flush()
				x += dx
				y += dy
			}

		// Tm sets the text matrix; e and f are the absolute origin.
		case bytes.HasSuffix(line, []byte("Tm")):
			if e, f, ok := lastOperands2(line); ok {
				flush()
				x, y = e, f
			}

		case bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				cur.WriteString(decodePDFString(m[1]))
			}

		// ' moves to the next line and shows text.
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if cur.Len() > 0 {
					cur.WriteByte('\n')
				}
				cur.WriteString(decodePDFString(m[1]))
			}

		case bytes.Equal(line, []byte("T*")):
			cur.WriteByte('\n')
		}
	}
	flush()
	return blocks
}

// lastOperands2 parses the two numeric operands preceding the operator,
// e.g. "72 700 Td" or "1 0 0 1 72 700 Tm" (last two of six).
func lastOperands2(line []byte) (float64, float64, bool) {
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return 0, 0, false
	}
	a, err1 := strconv.ParseFloat(fields[len(fields)-3], 64)
	b, err2 := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// mergeIntoBlocks regroups unanchored text into paragraph-sized blocks:
// lines accumulate until the buffer exceeds threshold characters, then
// flush as one block. Anchors are synthesized in emission order.
func mergeIntoBlocks(blocks []textBlock, threshold int) []textBlock {
	var lines []string
	for _, b := range blocks {
		for _, l := range strings.Split(b.text, "\n") {
			l = strings.TrimSpace(l)
			// Drop noise lines: very short with no alphanumerics.
			if l == "" || (len(l) <= 3 && !containsAlnum(l)) {
				continue
			}
			lines = append(lines, l)
		}
	}

	var out []textBlock
	var buf []string
	seq := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		out = append(out, textBlock{top: float64(seq), text: strings.Join(buf, " ")})
		seq++
		buf = nil
	}
	for _, l := range lines {
		buf = append(buf, l)
		if len(strings.Join(buf, " ")) > threshold {
			flush()
		}
	}
	flush()
	return out
}

func containsAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanText normalises whitespace in extracted text, preserving line breaks.
func cleanText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteByte('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	// Fallback: scan the xref table for image subtype stream objects.
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

func joinUnitText(units []TextUnit) string {
	var sb strings.Builder
	for _, u := range units {
		if u.Sentinel() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(u.Text)
	}
	return sb.String()
}
