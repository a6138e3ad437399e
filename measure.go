package pdfreport

import (
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"
)

// Font identifies a core font face and size. Size is in points.
type Font struct {
	Family string // Helvetica, Times, Courier
	Style  string // "", "B", "I", "BI"
	Size   float64
}

// Metrics reports the rendered width of a string in the document unit.
type Metrics interface {
	StringWidth(s string, font Font) float64
}

// TextMeasurer wraps text into lines that fit a width budget.
type TextMeasurer struct {
	Metrics Metrics
}

// Wrap splits text into lines no wider than maxWidth. Existing newlines
// always start a new line; words are packed greedily. A word wider than
// maxWidth is placed alone on its own line. Runs of whitespace collapse
// to a single space.
func (m TextMeasurer) Wrap(text string, maxWidth float64, font Font) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if m.Metrics.StringWidth(candidate, font) <= maxWidth {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}

// CoreFontMetrics measures strings with gofpdf's built-in core font tables.
// Strings are translated to cp1252 first, the same way they are drawn.
type CoreFontMetrics struct {
	mu        sync.Mutex
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// NewCoreFontMetrics returns metrics for the given document unit.
func NewCoreFontMetrics(unit string) *CoreFontMetrics {
	pdf := gofpdf.New("P", gofpdfUnit(unit), "A4", "")
	return &CoreFontMetrics{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (m *CoreFontMetrics) StringWidth(s string, font Font) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(font.Family, font.Style, font.Size)
	return m.pdf.GetStringWidth(m.translate(s))
}
