package pdfreport

import "math"

// Style holds the typographic constants of a report. Sizes and spacings are
// in points and converted to the document unit on use.
type Style struct {
	FontFamily   string
	BodySize     float64
	Heading1Size float64
	Heading2Size float64
	LineSpacing  float64 // line height as a multiple of the font size

	ParagraphGap float64
	BulletIndent float64
	BulletRadius float64
	ImageGutter  float64
	DividerSpace float64
}

// DefaultStyle returns the house style used when no overrides are given.
func DefaultStyle() Style {
	return Style{
		FontFamily:   "Helvetica",
		BodySize:     11,
		Heading1Size: 16,
		Heading2Size: 13,
		LineSpacing:  1.4,
		ParagraphGap: 4,
		BulletIndent: 14,
		BulletRadius: 1.5,
		ImageGutter:  6,
		DividerSpace: 12,
	}
}

func (s Style) bodyFont() Font { return Font{Family: s.FontFamily, Size: s.BodySize} }

func (s Style) headingFont(level int) Font {
	if level == 1 {
		return Font{Family: s.FontFamily, Style: "B", Size: s.Heading1Size}
	}
	return Font{Family: s.FontFamily, Style: "B", Size: s.Heading2Size}
}

// heading spacing before and after, in points
func (s Style) headingSpace(level int) (before, after float64) {
	if level == 1 {
		return 6, 4
	}
	return 5, 3
}

// Estimator computes the vertical space a block occupies once drawn.
type Estimator struct {
	Measurer TextMeasurer
	Geometry Geometry
	Style    Style

	// UsableHeight is the page height available to content below the
	// header. Oversized images are estimated at exactly this height.
	UsableHeight float64
}

func (e Estimator) pt(v float64) float64 { return e.Geometry.FromPoints(v) }

// LineHeight returns the height of one text line at the given font size.
func (e Estimator) LineHeight(size float64) float64 {
	return e.pt(size * e.Style.LineSpacing)
}

// Baseline is the offset from the top of a line box to the text baseline.
func (e Estimator) Baseline(lineHeight, size float64) float64 {
	return lineHeight/2 + e.pt(size)*0.35
}

// BulletOffset is the distance from the left margin to the text of a
// bullet at the given nesting level.
func (e Estimator) BulletOffset(level int) float64 {
	return e.pt(e.Style.BulletIndent) * float64(level+1)
}

// HeadingHeight is the fixed height of a single-line heading.
func (e Estimator) HeadingHeight(level int) float64 {
	before, after := e.Style.headingSpace(level)
	return e.pt(before) + e.LineHeight(e.Style.headingFont(level).Size) + e.pt(after)
}

// Estimate returns the height of b when laid out at contentWidth. Callers
// must pass the same width that will be used for drawing.
func (e Estimator) Estimate(b Block, contentWidth float64) float64 {
	switch v := b.(type) {
	case Paragraph:
		return e.textHeight(v.Text, contentWidth)
	case BulletItem:
		return e.textHeight(v.Text, contentWidth-e.BulletOffset(v.level()))
	case Heading:
		return e.headingHeight(v, contentWidth)
	case Image:
		return e.imageHeight(v, 0, 0, contentWidth)
	case *resolvedImage:
		if v.failed() {
			return e.textHeight(imageErrorText, contentWidth)
		}
		return e.imageHeight(v.Image, v.pxW, v.pxH, contentWidth)
	case Divider:
		return e.pt(e.Style.DividerSpace)
	}
	return 0
}

func (e Estimator) textHeight(text string, width float64) float64 {
	lines := e.Measurer.Wrap(text, width, e.Style.bodyFont())
	return float64(len(lines))*e.LineHeight(e.Style.BodySize) + e.pt(e.Style.ParagraphGap)
}

func (e Estimator) headingHeight(h Heading, width float64) float64 {
	font := e.Style.headingFont(h.level())
	lines := e.Measurer.Wrap(h.Text, width, font)
	extra := float64(len(lines)-1) * e.LineHeight(font.Size)
	return e.HeadingHeight(h.level()) + extra
}

func (e Estimator) imageHeight(img Image, pxW, pxH int, width float64) float64 {
	_, h, oversized := e.ImageBox(img, pxW, pxH, width)
	if oversized {
		return e.UsableHeight
	}
	return h + e.pt(e.Style.ImageGutter)
}

// ImageBox returns the drawn size of an image. Missing dimensions come from
// the pixel size at 96 DPI. An image larger than the content box is scaled
// down to fit it, keeping its aspect ratio, and reported as oversized.
func (e Estimator) ImageBox(img Image, pxW, pxH int, width float64) (w, h float64, oversized bool) {
	w, h = sane(img.Width), sane(img.Height)
	natW, natH := e.pt(float64(pxW)*72/96), e.pt(float64(pxH)*72/96)
	switch {
	case w == 0 && h == 0:
		w, h = natW, natH
	case w == 0 && natH > 0:
		w = h * natW / natH
	case h == 0 && natW > 0:
		h = w * natH / natW
	}
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}

	maxW := width
	maxH := e.UsableHeight - e.pt(e.Style.ImageGutter)
	if w > maxW || h > maxH {
		if maxW <= 0 || maxH <= 0 {
			return 0, 0, true
		}
		scale := math.Min(maxW/w, maxH/h)
		return w * scale, h * scale, true
	}
	return w, h, false
}

func sane(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
