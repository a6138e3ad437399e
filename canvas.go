package pdfreport

import (
	"bytes"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Color is an RGB color.
type Color struct {
	R, G, B int
}

var (
	colorText  = Color{33, 33, 33}
	colorMuted = Color{110, 110, 110}
	colorRule  = Color{180, 180, 180}
	colorError = Color{176, 0, 32}
	colorMark  = Color{200, 200, 200}
)

// canvas is the drawing surface of one render. It forwards every primitive
// to gofpdf and keeps a record of what was drawn on which page.
type canvas struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
	geom      Geometry
	pages     []*Page
	cur       int
	role      Role
}

func newCanvas(geom Geometry, created time.Time) *canvas {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        gofpdfUnit(geom.Unit),
		Size:           gofpdf.SizeType{Wd: geom.PageWidth, Ht: geom.PageHeight},
	})
	pdf.SetMargins(geom.MarginLeft, geom.MarginTop, geom.MarginRight)
	pdf.SetAutoPageBreak(false, geom.MarginBottom)
	pdf.SetCatalogSort(true)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
	}
	return &canvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		geom:      geom,
		role:      RoleBody,
	}
}

func (c *canvas) addPage() {
	c.pdf.AddPage()
	c.pages = append(c.pages, &Page{Index: len(c.pages)})
	c.cur = len(c.pages) - 1
}

// selectPage makes an existing page current again so more content can be
// drawn on it.
func (c *canvas) selectPage(index int) {
	c.pdf.SetPage(index + 1)
	c.cur = index
}

func (c *canvas) pageCount() int { return len(c.pages) }

func (c *canvas) record(p Primitive) {
	p.Role = c.role
	c.pages[c.cur].Primitives = append(c.pages[c.cur].Primitives, p)
}

func (c *canvas) place(p Placement) {
	c.pages[c.cur].Placements = append(c.pages[c.cur].Placements, p)
}

// text draws s with its baseline at y.
func (c *canvas) text(x, y float64, s string, font Font, color Color) {
	c.pdf.SetFont(font.Family, font.Style, font.Size)
	c.pdf.SetTextColor(color.R, color.G, color.B)
	c.pdf.Text(x, y, c.translate(s))
	c.record(Primitive{Kind: PrimitiveText, X: x, Y: y, W: c.pdf.GetStringWidth(c.translate(s)), Text: s, Font: font})
}

func (c *canvas) stringWidth(s string, font Font) float64 {
	c.pdf.SetFont(font.Family, font.Style, font.Size)
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *canvas) bullet(cx, cy, r float64, color Color) {
	c.pdf.SetFillColor(color.R, color.G, color.B)
	c.pdf.Circle(cx, cy, r, "F")
	c.record(Primitive{Kind: PrimitiveBullet, X: cx - r, Y: cy - r, W: 2 * r, H: 2 * r})
}

func (c *canvas) rule(x1, x2, y, width float64, color Color) {
	c.pdf.SetLineWidth(width)
	c.pdf.SetDrawColor(color.R, color.G, color.B)
	c.pdf.Line(x1, y, x2, y)
	c.record(Primitive{Kind: PrimitiveRule, X: x1, Y: y, W: x2 - x1})
}

// registerPNG makes a PNG available under name. Registration happens once
// per document; an error leaves the document usable.
func (c *canvas) registerPNG(name string, data []byte) error {
	if c.pdf.GetImageInfo(name) != nil {
		return nil
	}
	c.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if c.pdf.Err() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return err
	}
	return nil
}

func (c *canvas) image(name string, x, y, w, h float64) {
	c.pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	c.record(Primitive{Kind: PrimitiveImage, X: x, Y: y, W: w, H: h, Text: name})
}

func (c *canvas) output(w io.Writer) error {
	if c.pdf.Err() {
		return c.pdf.Error()
	}
	return c.pdf.Output(w)
}
