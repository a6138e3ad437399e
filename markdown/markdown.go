// Package markdown converts generated report text into report sections.
//
// Input is GitHub flavored markdown. Level 1 headings start sections,
// deeper headings become level 2 headings, list items become bullets,
// thematic breaks become dividers and images become image blocks. Code
// blocks, block quotes and tables are flattened into paragraphs.
package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/lvillar/pdfreport"
)

// DefaultSectionTitle names the section that collects content appearing
// before the first level 1 heading.
const DefaultSectionTitle = "Overview"

// Converter turns markdown into sections. It is safe for concurrent use.
type Converter struct {
	md           goldmark.Markdown
	defaultTitle string
}

// Option configures a Converter.
type Option func(*Converter)

// WithDefaultSection sets the title of the section that holds leading
// content.
func WithDefaultSection(title string) Option {
	return func(c *Converter) {
		if t := strings.TrimSpace(title); t != "" {
			c.defaultTitle = t
		}
	}
}

// New returns a Converter with GFM extensions enabled.
func New(opts ...Option) *Converter {
	c := &Converter{
		md:           goldmark.New(goldmark.WithExtensions(extension.GFM)),
		defaultTitle: DefaultSectionTitle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert parses src. It returns no sections for blank input.
func (c *Converter) Convert(src []byte) []pdfreport.Section {
	root := c.md.Parser().Parse(text.NewReader(src))
	b := &builder{src: src, defaultTitle: c.defaultTitle}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		b.block(n)
	}
	return b.sections
}

// Document parses src into a document with the given title.
func (c *Converter) Document(title string, src []byte) *pdfreport.Document {
	return &pdfreport.Document{
		Title:              title,
		IncludePageNumbers: true,
		Sections:           c.Convert(src),
	}
}

// Convert parses src with the default Converter.
func Convert(src []byte) []pdfreport.Section {
	return New().Convert(src)
}

type builder struct {
	src          []byte
	defaultTitle string
	sections     []pdfreport.Section
}

func (b *builder) add(blocks ...pdfreport.Block) {
	if len(blocks) == 0 {
		return
	}
	if len(b.sections) == 0 {
		b.sections = append(b.sections, pdfreport.Section{Title: b.defaultTitle})
	}
	last := &b.sections[len(b.sections)-1]
	last.Blocks = append(last.Blocks, blocks...)
}

func (b *builder) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		title := b.inline(v)
		if v.Level == 1 && title != "" {
			b.sections = append(b.sections, pdfreport.Section{Title: title})
			return
		}
		if title != "" {
			b.add(pdfreport.Heading{Text: title, Level: 2})
		}

	case *ast.Paragraph, *ast.TextBlock:
		b.paragraph(v)

	case *ast.List:
		b.list(v, 0)

	case *ast.ThematicBreak:
		b.add(pdfreport.Divider{})

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if code := strings.TrimRight(b.lines(v), "\n"); code != "" {
			b.add(pdfreport.Paragraph{Text: code})
		}

	case *ast.Blockquote:
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			b.block(c)
		}

	case *east.Table:
		b.table(v)
	}
}

// paragraph emits the text of n, then any images it contains.
func (b *builder) paragraph(n ast.Node) {
	if t := b.inline(n); t != "" {
		b.add(pdfreport.Paragraph{Text: t})
	}
	for _, img := range b.images(n) {
		b.add(img)
	}
}

func (b *builder) list(l *ast.List, depth int) {
	num := l.Start
	if num == 0 {
		num = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var images []pdfreport.Block
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.List); ok {
				continue
			}
			if t := b.inline(c); t != "" {
				parts = append(parts, t)
			}
			images = append(images, b.images(c)...)
		}
		t := strings.Join(parts, " ")
		if l.IsOrdered() {
			t = strconv.Itoa(num) + ". " + t
			num++
		}
		b.add(pdfreport.BulletItem{Text: t, Level: depth})
		b.add(images...)

		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				b.list(nested, depth+1)
			}
		}
	}
}

func (b *builder) table(t *east.Table) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, b.inline(cell))
		}
		if line := strings.Join(cells, " | "); strings.TrimSpace(strings.ReplaceAll(line, "|", "")) != "" {
			b.add(pdfreport.Paragraph{Text: line})
		}
	}
}

func (b *builder) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(b.src))
	}
	return buf.String()
}

// inline collects the plain text of n's inline children. Images are left
// out; they become blocks of their own.
func (b *builder) inline(n ast.Node) string {
	var buf strings.Builder
	b.collect(&buf, n)
	return strings.TrimSpace(buf.String())
}

func (b *builder) collect(buf *strings.Builder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(b.src))
			switch {
			case v.HardLineBreak():
				buf.WriteByte('\n')
			case v.SoftLineBreak():
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.URL(b.src))
		case *ast.Image, *ast.RawHTML:
		default:
			if c.Type() == ast.TypeInline {
				b.collect(buf, c)
			}
		}
	}
}

func (b *builder) images(n ast.Node) []pdfreport.Block {
	var out []pdfreport.Block
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := c.(*ast.Image); ok && entering {
			out = append(out, pdfreport.Image{Ref: string(img.Destination)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}
