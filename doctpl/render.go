package doctpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/markdown"
)

// Parse decodes a JSON template.
func Parse(jsonTemplate []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(jsonTemplate, &tpl); err != nil {
		return nil, fmt.Errorf("doctpl: parsing template: %w", err)
	}
	return &tpl, nil
}

// Render parses a JSON template and writes the resulting PDF to w.
func Render(w io.Writer, jsonTemplate []byte) error {
	tpl, err := Parse(jsonTemplate)
	if err != nil {
		return err
	}
	return RenderDocument(w, tpl)
}

// RenderDocument renders a Template to a PDF written to w.
func RenderDocument(w io.Writer, tpl *Template) error {
	out, err := Generate(context.Background(), tpl)
	if err != nil {
		return err
	}
	_, err = out.WriteTo(w)
	return err
}

// Generate renders tpl with a renderer configured from the template's page
// setup. The base options apply first, so the template overrides them.
func Generate(ctx context.Context, tpl *Template, base ...pdfreport.Option) (*pdfreport.RenderedDocument, error) {
	doc, err := tpl.Build()
	if err != nil {
		return nil, err
	}
	r, err := pdfreport.New(append(base, tpl.Options()...)...)
	if err != nil {
		return nil, fmt.Errorf("doctpl: %w", err)
	}
	out, err := r.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("doctpl: %w", err)
	}
	return out, nil
}

// Options returns the renderer options the template asks for.
func (t *Template) Options() []pdfreport.Option {
	var opts []pdfreport.Option
	if t.Unit != "" {
		opts = append(opts, pdfreport.WithUnit(t.Unit))
	}
	if t.PageSize != "" {
		opts = append(opts, pdfreport.WithPageSize(t.PageSize))
	}
	if t.Margin != nil {
		opts = append(opts, pdfreport.WithMargins(t.Margin.Top, t.Margin.Right, t.Margin.Bottom, t.Margin.Left))
	}
	if t.Font != "" {
		opts = append(opts, pdfreport.WithFontFamily(t.Font))
	}
	if t.Watermark != "" {
		opts = append(opts, pdfreport.WithWatermark(t.Watermark))
	}
	return opts
}

// Build converts the template into a report document.
func (t *Template) Build() (*pdfreport.Document, error) {
	doc := &pdfreport.Document{
		Title:              t.Title,
		PreparedFor:        t.PreparedFor,
		IncludeLogo:        t.IncludeLogo,
		IncludePageNumbers: t.IncludePageNumbers,
		ReferenceID:        t.ReferenceID,
	}

	switch ts := strings.TrimSpace(t.GeneratedAt); ts {
	case "":
	case "now":
		doc.GeneratedAt = time.Now()
	default:
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("doctpl: generatedAt: %w", err)
		}
		doc.GeneratedAt = at
	}

	for i, s := range t.Sections {
		blocks, err := buildBlocks(s)
		if err != nil {
			return nil, fmt.Errorf("doctpl: section %d: %w", i+1, err)
		}
		doc.Sections = append(doc.Sections, pdfreport.Section{Title: s.Title, Blocks: blocks})
	}
	if strings.TrimSpace(t.Markdown) != "" {
		doc.Sections = append(doc.Sections, markdown.Convert([]byte(t.Markdown))...)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("doctpl: %w", err)
	}
	return doc, nil
}

func buildBlocks(s Section) ([]pdfreport.Block, error) {
	var blocks []pdfreport.Block
	for j, elem := range s.Blocks {
		switch elem.Type {
		case "paragraph", "text":
			blocks = append(blocks, pdfreport.Paragraph{Text: elem.Text})
		case "heading":
			blocks = append(blocks, pdfreport.Heading{Text: elem.Text, Level: elem.Level})
		case "bullet":
			blocks = append(blocks, pdfreport.BulletItem{Text: elem.Text})
		case "list":
			for k, item := range elem.Items {
				if elem.Ordered {
					item = strconv.Itoa(k+1) + ". " + item
				}
				blocks = append(blocks, pdfreport.BulletItem{Text: item})
			}
		case "image":
			if elem.Src == "" {
				return nil, fmt.Errorf("block %d: image element requires 'src' field", j+1)
			}
			blocks = append(blocks, pdfreport.Image{Ref: elem.Src, Width: elem.Width, Height: elem.Height})
		case "divider", "hr":
			blocks = append(blocks, pdfreport.Divider{})
		case "markdown":
			blocks = append(blocks, markdownBlocks(s.Title, elem.Text)...)
		default:
			return nil, fmt.Errorf("block %d: unknown element type %q", j+1, elem.Type)
		}
	}
	return blocks, nil
}

// markdownBlocks inlines markdown into an existing section. Level 1
// headings inside it are demoted to level 2 headings.
func markdownBlocks(sectionTitle, src string) []pdfreport.Block {
	var blocks []pdfreport.Block
	conv := markdown.New(markdown.WithDefaultSection(sectionTitle))
	for i, s := range conv.Convert([]byte(src)) {
		if i > 0 || s.Title != sectionTitle {
			blocks = append(blocks, pdfreport.Heading{Text: s.Title, Level: 2})
		}
		blocks = append(blocks, s.Blocks...)
	}
	return blocks
}
