package pdfreport

import (
	"fmt"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lvillar/pdfreport/imageload"
)

const (
	logoImageName   = "pdfreport-logo"
	timestampLayout = "2006-01-02 15:04 MST"
)

type headerLine struct {
	text  string
	font  Font
	color Color
}

// PageManager owns page creation and the content repeated on every page:
// the header drawn as each page opens, and the footer, watermark and
// verification code stamped once the final page count is known.
type PageManager struct {
	canvas *canvas
	est    Estimator
	geom   Geometry
	style  Style

	logo       *imageload.Image
	logoW      float64
	logoH      float64
	lines      []headerLine
	blockH     float64
	height     float64
	numbers    bool
	watermark  string
	letterhead *letterhead
	codeKey    string
	codeKind   CodeKind
}

type letterhead struct {
	imp *gofpdi.Importer
	tpl int
}

func newPageManager(c *canvas, est Estimator, doc *Document, cfg *config, logo *imageload.Image) (*PageManager, error) {
	m := &PageManager{
		canvas:    c,
		est:       est,
		geom:      est.Geometry,
		style:     est.Style,
		numbers:   doc.IncludePageNumbers,
		watermark: strings.TrimSpace(cfg.watermark),
	}

	if doc.IncludeLogo && logo != nil {
		if err := c.registerPNG(logoImageName, logo.PNG); err != nil {
			return nil, fmt.Errorf("registering logo: %w", err)
		}
		m.logo = logo
		m.logoH = est.pt(40)
		m.logoW = min(m.logoH*float64(logo.Width)/float64(logo.Height), est.pt(120))
	}
	m.layoutHeader(doc)

	if cfg.letterhead != "" {
		lh, err := importLetterhead(c, cfg.letterhead)
		if err != nil {
			return nil, err
		}
		m.letterhead = lh
	}

	if cfg.code != CodeNone && doc.ReferenceID != "" {
		if err := m.registerCode(cfg.code, cfg.codeBase+doc.ReferenceID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// HeaderHeight is the space the header takes below the top margin.
func (m *PageManager) HeaderHeight() float64 { return m.height }

func (m *PageManager) layoutHeader(doc *Document) {
	textX := m.geom.MarginLeft
	if m.logo != nil {
		textX += m.logoW + m.est.pt(8)
	}
	avail := m.geom.PageWidth - m.geom.MarginRight - textX

	title := Font{Family: m.style.FontFamily, Style: "B", Size: 18}
	m.lines = append(m.lines, headerLine{m.fit(doc.title(), avail, title), title, colorText})
	if name := strings.TrimSpace(doc.PreparedFor); name != "" {
		f := Font{Family: m.style.FontFamily, Size: 11}
		m.lines = append(m.lines, headerLine{m.fit("Prepared for: "+name, avail, f), f, colorText})
	}
	if !doc.GeneratedAt.IsZero() {
		f := Font{Family: m.style.FontFamily, Size: 9}
		m.lines = append(m.lines, headerLine{"Generated: " + doc.GeneratedAt.Format(timestampLayout), f, colorMuted})
	}

	var textH float64
	for _, l := range m.lines {
		textH += m.est.LineHeight(l.font.Size)
	}
	m.blockH = max(textH, m.logoH)
	m.height = m.blockH + m.est.pt(4) + m.est.pt(10)
}

// fit shortens s with an ellipsis until it fits width.
func (m *PageManager) fit(s string, width float64, font Font) string {
	metrics := m.est.Measurer.Metrics
	if metrics.StringWidth(s, font) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && metrics.StringWidth(string(r)+"...", font) > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// StartPage opens a page and draws its header. It returns the header height.
func (m *PageManager) StartPage(index int) float64 {
	c := m.canvas
	c.addPage()

	if m.letterhead != nil {
		c.role = RoleDecoration
		m.letterhead.imp.UseImportedTemplate(c.pdf, m.letterhead.tpl, 0, 0, m.geom.PageWidth, m.geom.PageHeight)
		c.record(Primitive{Kind: PrimitiveLayer, W: m.geom.PageWidth, H: m.geom.PageHeight, Text: "letterhead"})
	}

	c.role = RoleHeader
	top := m.geom.MarginTop
	x := m.geom.MarginLeft
	if m.logo != nil {
		c.image(logoImageName, x, top, m.logoW, m.logoH)
		x += m.logoW + m.est.pt(8)
	}
	y := top
	for _, l := range m.lines {
		lh := m.est.LineHeight(l.font.Size)
		c.text(x, y+m.est.Baseline(lh, l.font.Size), l.text, l.font, l.color)
		y += lh
	}
	c.rule(m.geom.MarginLeft, m.geom.PageWidth-m.geom.MarginRight, top+m.blockH+m.est.pt(4), m.est.pt(0.8), colorRule)

	c.role = RoleBody
	return m.height
}

// Finalize revisits every page once layout is complete and stamps the
// watermark, the "Page N of M" footer and the verification code.
func (m *PageManager) Finalize() {
	c := m.canvas
	total := c.pageCount()
	for i := 0; i < total; i++ {
		c.selectPage(i)
		if m.watermark != "" {
			c.role = RoleDecoration
			m.drawWatermark()
		}
		c.role = RoleFooter
		if m.numbers {
			m.drawPageNumber(i+1, total)
		}
		if m.codeKey != "" {
			m.drawCode()
		}
	}
	c.role = RoleBody
}

func (m *PageManager) drawPageNumber(page, total int) {
	font := Font{Family: m.style.FontFamily, Size: 9}
	text := fmt.Sprintf("Page %d of %d", page, total)
	w := m.canvas.stringWidth(text, font)
	x := (m.geom.PageWidth - w) / 2
	y := m.geom.PageHeight - m.geom.MarginBottom/2 + m.est.pt(font.Size)*0.35
	m.canvas.text(x, y, text, font, colorMuted)
}

func (m *PageManager) drawWatermark() {
	font := Font{Family: m.style.FontFamily, Style: "B", Size: 60}
	w := m.canvas.stringWidth(m.watermark, font)
	cx, cy := m.geom.PageWidth/2, m.geom.PageHeight/2

	pdf := m.canvas.pdf
	pdf.SetAlpha(0.25, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(45, cx, cy)
	m.canvas.text(cx-w/2, cy+m.est.pt(font.Size)/3, m.watermark, font, colorMark)
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}

func (m *PageManager) registerCode(kind CodeKind, content string) error {
	pdf := m.canvas.pdf
	switch kind {
	case CodeQR:
		m.codeKey = barcode.RegisterQR(pdf, content, qr.M, qr.Unicode)
	case CodePDF417:
		m.codeKey = barcode.RegisterPdf417(pdf, content, 8, 2)
	default:
		return fmt.Errorf("%w: verification code %q", ErrInvalidParam, kind)
	}
	m.codeKind = kind
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		m.codeKey = ""
		return fmt.Errorf("encoding verification code: %w", err)
	}
	return nil
}

func (m *PageManager) drawCode() {
	size := min(m.geom.MarginBottom*0.8, m.est.pt(48))
	w, h := size, size
	if m.codeKind == CodePDF417 {
		w, h = size*3, size
	}
	x := m.geom.PageWidth - m.geom.MarginRight - w
	y := m.geom.PageHeight - m.geom.MarginBottom + (m.geom.MarginBottom-h)/2
	barcode.Barcode(m.canvas.pdf, m.codeKey, x, y, w, h, false)
	m.canvas.record(Primitive{Kind: PrimitiveCode, X: x, Y: y, W: w, H: h, Text: string(m.codeKind)})
}

// importLetterhead loads page 1 of a PDF as a reusable template. The
// importer reports malformed files by panicking.
func importLetterhead(c *canvas, path string) (lh *letterhead, err error) {
	defer func() {
		if r := recover(); r != nil {
			lh, err = nil, fmt.Errorf("importing letterhead %s: %v", path, r)
		}
	}()
	imp := gofpdi.NewImporter()
	tpl := imp.ImportPage(c.pdf, path, 1, "/MediaBox")
	if c.pdf.Err() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return nil, fmt.Errorf("importing letterhead %s: %w", path, err)
	}
	return &letterhead{imp: imp, tpl: tpl}, nil
}
