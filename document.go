package pdfreport

import (
	"fmt"
	"strings"
	"time"
)

// Document is a complete report request. It is read, never modified, by a
// render call.
type Document struct {
	Title              string
	PreparedFor        string
	GeneratedAt        time.Time // zero omits the header timestamp
	IncludeLogo        bool
	IncludePageNumbers bool
	ReferenceID        string // encoded in the footer when verification codes are enabled
	Sections           []Section
}

// Section is a titled run of blocks. Its title is always laid out as a
// level 1 heading ahead of the body.
type Section struct {
	Title  string
	Blocks []Block
}

// Block is one semantic unit of report content. The set of implementations
// is closed: Paragraph, Heading, BulletItem, Image and Divider.
type Block interface {
	Kind() BlockKind
	block()
}

// BlockKind names a Block variant.
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindBullet    BlockKind = "bullet"
	KindImage     BlockKind = "image"
	KindDivider   BlockKind = "divider"
)

type Paragraph struct {
	Text string
}

// Heading is a section or sub-section title. Levels other than 1 and 2 are
// clamped into that range.
type Heading struct {
	Text  string
	Level int
}

// BulletItem is one list entry. Level is the nesting depth, 0 for a top
// level item; each level indents by one bullet indent, up to
// MaxBulletLevel.
type BulletItem struct {
	Text  string
	Level int
}

// MaxBulletLevel is the deepest nesting that still indents further.
const MaxBulletLevel = 3

func (b BulletItem) level() int {
	return min(max(b.Level, 0), MaxBulletLevel)
}

// Image embeds a raster image. Data takes precedence over Ref, which may be
// a file path, a data: URI or an http(s) URL. A zero Width or Height is
// derived from the image's pixel size at 96 DPI.
type Image struct {
	Data   []byte
	Ref    string
	Width  float64
	Height float64
}

// Divider is a horizontal rule across the content width.
type Divider struct{}

func (Paragraph) Kind() BlockKind  { return KindParagraph }
func (Heading) Kind() BlockKind    { return KindHeading }
func (BulletItem) Kind() BlockKind { return KindBullet }
func (Image) Kind() BlockKind      { return KindImage }
func (Divider) Kind() BlockKind    { return KindDivider }

func (Paragraph) block()  {}
func (Heading) block()    {}
func (BulletItem) block() {}
func (Image) block()      {}
func (Divider) block()    {}

func (h Heading) level() int {
	if h.Level <= 1 {
		return 1
	}
	return 2
}

// Validate reports whether the document can be rendered. The returned error
// is an *InvalidDocumentError.
func (d *Document) Validate() error {
	if d == nil {
		return &InvalidDocumentError{Reason: "document is nil"}
	}
	if len(d.Sections) == 0 {
		return &InvalidDocumentError{Reason: "document has no sections"}
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" {
			return &InvalidDocumentError{Reason: fmt.Sprintf("section %d has an empty title", i+1)}
		}
		for j, b := range s.Blocks {
			if b == nil {
				return &InvalidDocumentError{Reason: fmt.Sprintf("section %d block %d is nil", i+1, j+1)}
			}
		}
	}
	return nil
}

func (d *Document) title() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return "Report"
}

// flatten yields blocks in layout order: each section's title heading
// followed by its body.
func (d *Document) flatten() []Block {
	var out []Block
	for _, s := range d.Sections {
		out = append(out, Heading{Text: s.Title, Level: 1})
		out = append(out, s.Blocks...)
	}
	return out
}
