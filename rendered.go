package pdfreport

import (
	"bytes"
	"io"
)

// ContentType is the MIME type of a rendered document.
const ContentType = "application/pdf"

// PrimitiveKind names a drawing operation.
type PrimitiveKind string

const (
	PrimitiveText   PrimitiveKind = "text"
	PrimitiveBullet PrimitiveKind = "bullet"
	PrimitiveImage  PrimitiveKind = "image"
	PrimitiveRule   PrimitiveKind = "rule"
	PrimitiveCode   PrimitiveKind = "code"
	PrimitiveLayer  PrimitiveKind = "layer"
)

// Role tells which part of the page a primitive belongs to.
type Role string

const (
	RoleHeader     Role = "header"
	RoleBody       Role = "body"
	RoleFooter     Role = "footer"
	RoleDecoration Role = "decoration"
)

// Primitive is one recorded drawing operation. Text primitives carry the
// original (untranslated) string with Y at the baseline.
type Primitive struct {
	Kind PrimitiveKind
	Role Role
	X, Y float64
	W, H float64
	Text string
	Font Font
}

// Placement records where a content block landed.
type Placement struct {
	Kind        BlockKind
	Y           float64 // top of the block
	Height      float64 // estimated height the cursor advanced by
	BreakBefore bool    // a page break was inserted for this block
	Lines       []string
}

// Page is one fixed-size page of a rendered document.
type Page struct {
	Index      int
	Primitives []Primitive
	Placements []Placement
}

// Texts returns the text drawn on the page in the given role, in drawing
// order.
func (p *Page) Texts(role Role) []string {
	var out []string
	for _, prim := range p.Primitives {
		if prim.Kind == PrimitiveText && prim.Role == role {
			out = append(out, prim.Text)
		}
	}
	return out
}

// Lines returns the wrapped body lines of every block on the page.
func (p *Page) Lines() []string {
	var out []string
	for _, pl := range p.Placements {
		out = append(out, pl.Lines...)
	}
	return out
}

// RenderedDocument is the immutable result of a render.
type RenderedDocument struct {
	Pages     []*Page
	PageCount int

	// Warnings holds the recovered per-block failures, one
	// *ImageDecodeError per substituted image.
	Warnings []error

	data []byte
}

// Bytes returns a copy of the serialized PDF.
func (d *RenderedDocument) Bytes() []byte {
	return bytes.Clone(d.data)
}

// Size is the length of the serialized PDF in bytes.
func (d *RenderedDocument) Size() int {
	return len(d.data)
}

// Reader returns a reader over the serialized PDF.
func (d *RenderedDocument) Reader() io.Reader {
	return bytes.NewReader(d.data)
}

// WriteTo writes the serialized PDF to w.
func (d *RenderedDocument) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.data)
	return int64(n), err
}

// FooterTexts returns the footer text of every page, in page order.
func (d *RenderedDocument) FooterTexts() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts := p.Texts(RoleFooter)
		if len(texts) > 0 {
			out[i] = texts[0]
		}
	}
	return out
}
