package pdfreport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/pdfreport/imageload"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: 90, B: uint8(y * 255 / h), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	base := []Option{WithImageLoader(imageload.New(imageload.Options{DisableHTTP: true}))}
	r, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, doc *Document) *RenderedDocument {
	t.Helper()
	out, err := r.Render(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")), "output is not a PDF")
	return out
}

func allLines(doc *RenderedDocument) []string {
	var out []string
	for _, p := range doc.Pages {
		out = append(out, p.Lines()...)
	}
	return out
}

func longText(n int) string {
	words := []string{"sleep", "steps", "income", "grades", "budget", "attendance", "heart", "rate", "goal"}
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[i%len(words)])
	}
	return b.String()[:n]
}

func TestRenderShortParagraphFitsOnePage(t *testing.T) {
	r := newTestRenderer(t)
	text := "one two three four five six seven eight nine ten"

	out := render(t, r, &Document{
		Title:              "Weekly Summary",
		IncludePageNumbers: true,
		Sections:           []Section{{Title: "Summary", Blocks: []Block{Paragraph{Text: text}}}},
	})

	assert.Equal(t, 1, out.PageCount)
	require.Len(t, out.Pages[0].Placements, 2)
	para := out.Pages[0].Placements[1]
	assert.Equal(t, KindParagraph, para.Kind)
	assert.Equal(t, []string{text}, para.Lines)
	assert.Equal(t, []string{"Page 1 of 1"}, out.FooterTexts())
}

func TestRenderLongParagraphSpansPages(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Title:              "Long",
		IncludePageNumbers: true,
		Sections:           []Section{{Title: "Body", Blocks: []Block{Paragraph{Text: longText(5000)}}}},
	})

	require.Greater(t, out.PageCount, 1)
	footers := out.FooterTexts()
	require.Len(t, footers, out.PageCount)
	total := fmt.Sprintf("of %d", out.PageCount)
	assert.True(t, strings.HasSuffix(footers[0], total), footers[0])
	assert.True(t, strings.HasSuffix(footers[len(footers)-1], total), footers[len(footers)-1])
}

func TestRenderFooterConsistency(t *testing.T) {
	r := newTestRenderer(t)
	var blocks []Block
	for i := 0; i < 60; i++ {
		blocks = append(blocks, Paragraph{Text: longText(300)}, BulletItem{Text: "Goal met"})
		if i%10 == 9 {
			blocks = append(blocks, Divider{}, Heading{Text: "More", Level: 2})
		}
	}

	out := render(t, r, &Document{
		Title:              "Footers",
		IncludePageNumbers: true,
		Sections:           []Section{{Title: "A", Blocks: blocks}, {Title: "B", Blocks: blocks[:10]}},
	})

	require.Greater(t, out.PageCount, 2)
	assert.Len(t, out.Pages, out.PageCount)
	for i, footer := range out.FooterTexts() {
		assert.Equal(t, fmt.Sprintf("Page %d of %d", i+1, out.PageCount), footer)
	}
}

func TestRenderWithoutPageNumbers(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{Title: "Body", Blocks: []Block{Paragraph{Text: longText(5000)}}}},
	})

	for _, p := range out.Pages {
		assert.Empty(t, p.Texts(RoleFooter))
	}
}

func TestRenderHeaderOnEveryPage(t *testing.T) {
	r := newTestRenderer(t)
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	out := render(t, r, &Document{
		Title:       "Health Report",
		PreparedFor: "Jane Doe",
		GeneratedAt: at,
		Sections:    []Section{{Title: "Body", Blocks: []Block{Paragraph{Text: longText(5000)}}}},
	})

	require.Greater(t, out.PageCount, 1)
	for _, p := range out.Pages {
		assert.Equal(t, []string{"Health Report", "Prepared for: Jane Doe", "Generated: 2024-05-01 08:30 UTC"}, p.Texts(RoleHeader))
		require.NotEmpty(t, p.Placements)
		assert.Greater(t, p.Placements[0].Y, r.Geometry().MarginTop)
	}
}

func TestRenderHeaderDefaults(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{Title: "Body"}},
	})
	assert.Equal(t, []string{"Report"}, out.Pages[0].Texts(RoleHeader))
}

func TestRenderLongTitleIsTruncated(t *testing.T) {
	r := newTestRenderer(t)
	title := strings.Repeat("Quarterly ", 30)

	out := render(t, r, &Document{Title: title, Sections: []Section{{Title: "Body"}}})
	got := out.Pages[0].Texts(RoleHeader)[0]
	assert.True(t, strings.HasSuffix(got, "..."), got)
	assert.Less(t, len(got), len(title))
}

// checkLayout verifies that every block stays above the bottom margin
// unless it is alone on its page, that Y only grows within a page, and
// that breaks happen exactly when the next block would overflow.
func checkLayout(t *testing.T, r *Renderer, out *RenderedDocument) {
	t.Helper()
	g := r.Geometry()
	const eps = 1e-6

	var prevEnd float64
	for pi, p := range out.Pages {
		lastY := g.MarginTop
		for bi, pl := range p.Placements {
			assert.GreaterOrEqual(t, pl.Y, lastY, "page %d block %d moved up", pi+1, bi)
			lastY = pl.Y

			if bi > 0 {
				assert.LessOrEqual(t, pl.Y+pl.Height, g.Bottom()+eps, "page %d block %d overflows", pi+1, bi)
				assert.False(t, pl.BreakBefore)
			}
			if bi == 0 && pi > 0 {
				assert.True(t, pl.BreakBefore, "page %d starts without a break", pi+1)
				assert.Greater(t, prevEnd+pl.Height, g.Bottom(), "page %d block fit on the previous page", pi+1)
			}
			prevEnd = pl.Y + pl.Height
		}
	}
}

func TestRenderPageBreaks(t *testing.T) {
	r := newTestRenderer(t)
	img := testPNG(t, 64, 48)

	var blocks []Block
	for i := 0; i < 40; i++ {
		blocks = append(blocks,
			Heading{Text: fmt.Sprintf("Week %d", i+1), Level: 2},
			Paragraph{Text: longText(40 + 37*i%400)},
			BulletItem{Text: longText(20 + i)},
		)
		if i%7 == 0 {
			blocks = append(blocks, Image{Data: img, Width: 60})
		}
		if i%5 == 0 {
			blocks = append(blocks, Divider{})
		}
	}

	out := render(t, r, &Document{
		Title:              "Layout",
		IncludeLogo:        true,
		IncludePageNumbers: true,
		Sections:           []Section{{Title: "Weeks", Blocks: blocks}},
	})
	require.Greater(t, out.PageCount, 3)
	checkLayout(t, r, out)

	var placed int
	for _, p := range out.Pages {
		placed += len(p.Placements)
	}
	assert.Equal(t, len(blocks)+1, placed)
}

func TestRenderOversizedImageGetsOwnPage(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{
			Title:  "Pictures",
			Blocks: []Block{Image{Data: testPNG(t, 40, 30), Width: 1e9}},
		}},
	})

	assert.Equal(t, 2, out.PageCount)
	assert.Empty(t, out.Warnings)
	page := out.Pages[1]
	require.Len(t, page.Placements, 1)
	assert.Equal(t, KindImage, page.Placements[0].Kind)
	assert.True(t, page.Placements[0].BreakBefore)

	var drawn []Primitive
	for _, p := range page.Primitives {
		if p.Kind == PrimitiveImage && p.Role == RoleBody {
			drawn = append(drawn, p)
		}
	}
	require.Len(t, drawn, 1)
	assert.LessOrEqual(t, drawn[0].W, r.Geometry().ContentWidth()+1e-6)
	assert.LessOrEqual(t, drawn[0].Y+drawn[0].H, r.Geometry().Bottom()+1e-6)
}

func TestRenderOversizedParagraphDoesNotLoop(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{
			Title:  "Dump",
			Blocks: []Block{Paragraph{Text: longText(20000)}, Paragraph{Text: "after"}},
		}},
	})

	assert.Equal(t, 3, out.PageCount)
	assert.Equal(t, []string{"after"}, out.Pages[2].Lines())
}

func TestRenderCorruptImageIsReplaced(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{
			Title: "Mixed",
			Blocks: []Block{
				Paragraph{Text: "First paragraph."},
				Image{Ref: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png"))},
				Paragraph{Text: "Second paragraph."},
				Paragraph{Text: "Third paragraph."},
			},
		}},
	})

	assert.Equal(t, []string{"Mixed", "First paragraph.", imageErrorText, "Second paragraph.", "Third paragraph."}, allLines(out))
	require.Len(t, out.Warnings, 1)

	var decodeErr *ImageDecodeError
	require.ErrorAs(t, out.Warnings[0], &decodeErr)
	assert.ErrorIs(t, out.Warnings[0], ErrImageDecode)
	assert.Equal(t, 2, decodeErr.Index)
	assert.True(t, strings.HasPrefix(decodeErr.Ref, "data:image/png"))
	assert.Equal(t, KindParagraph, out.Pages[0].Placements[2].Kind)
}

func TestRenderMissingImageFile(t *testing.T) {
	r := newTestRenderer(t)

	out := render(t, r, &Document{
		Sections: []Section{{Title: "S", Blocks: []Block{Image{Ref: filepath.Join(t.TempDir(), "missing.png")}}}},
	})
	require.Len(t, out.Warnings, 1)
	assert.ErrorIs(t, out.Warnings[0], os.ErrNotExist)
}

func TestRenderImagesFromFileAndData(t *testing.T) {
	r := newTestRenderer(t)
	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 120, 60), 0o644))

	out := render(t, r, &Document{
		Sections: []Section{{
			Title: "Charts",
			Blocks: []Block{
				Image{Ref: path},
				Image{Data: testPNG(t, 30, 30), Width: 20, Height: 20},
			},
		}},
	})

	assert.Empty(t, out.Warnings)
	var names []string
	for _, p := range out.Pages[0].Primitives {
		if p.Kind == PrimitiveImage {
			names = append(names, p.Text)
		}
	}
	assert.Equal(t, []string{"image-1", "image-2"}, names)
}

func TestRenderCanceledContextSubstitutesImages(t *testing.T) {
	r := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.Render(ctx, &Document{
		Sections: []Section{{Title: "S", Blocks: []Block{Paragraph{Text: "text"}, Image{Data: testPNG(t, 4, 4)}}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.ErrorIs(t, out.Warnings[0], context.Canceled)
}

func TestRenderIdempotent(t *testing.T) {
	r := newTestRenderer(t)
	doc := &Document{
		Title:              "Twice",
		PreparedFor:        "Jane Doe",
		GeneratedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		IncludeLogo:        true,
		IncludePageNumbers: true,
		Sections: []Section{
			{Title: "One", Blocks: []Block{Paragraph{Text: longText(3000)}, BulletItem{Text: "a"}, Divider{}}},
			{Title: "Two", Blocks: []Block{Image{Data: testPNG(t, 50, 20)}, Paragraph{Text: longText(1200)}}},
		},
	}

	first := render(t, r, doc)
	second := render(t, r, doc)

	require.Equal(t, first.PageCount, second.PageCount)
	for i := range first.Pages {
		assert.Equal(t, first.Pages[i].Lines(), second.Pages[i].Lines())
		assert.Equal(t, first.Pages[i].Primitives, second.Pages[i].Primitives)
	}
}

func TestRenderDoesNotModifyDocument(t *testing.T) {
	r := newTestRenderer(t)
	img := testPNG(t, 10, 10)
	doc := &Document{
		Title:    "Same",
		Sections: []Section{{Title: "S", Blocks: []Block{Image{Data: img}, Paragraph{Text: "x"}}}},
	}

	render(t, r, doc)
	assert.Equal(t, Image{Data: img}, doc.Sections[0].Blocks[0])
	assert.Len(t, doc.Sections, 1)
}

func TestRenderInvalidDocuments(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil", nil},
		{"no sections", &Document{Title: "Empty"}},
		{"blank section title", &Document{Sections: []Section{{Title: " \t"}}}},
		{"nil block", &Document{Sections: []Section{{Title: "S", Blocks: []Block{nil}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(context.Background(), tt.doc)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)

			var re *RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "validate", re.Op)

			var ide *InvalidDocumentError
			assert.ErrorAs(t, err, &ide)
		})
	}
}

func TestRenderLogo(t *testing.T) {
	doc := &Document{Title: "Logo", IncludeLogo: true, Sections: []Section{{Title: "S"}}}

	hasLogo := func(out *RenderedDocument) bool {
		return slices.ContainsFunc(out.Pages[0].Primitives, func(p Primitive) bool {
			return p.Kind == PrimitiveImage && p.Role == RoleHeader && p.Text == logoImageName
		})
	}

	assert.True(t, hasLogo(render(t, newTestRenderer(t), doc)))
	assert.True(t, hasLogo(render(t, newTestRenderer(t, WithLogo(testPNG(t, 200, 50))), doc)))
	assert.False(t, hasLogo(render(t, newTestRenderer(t, WithoutLogo()), doc)))

	noLogo := *doc
	noLogo.IncludeLogo = false
	assert.False(t, hasLogo(render(t, newTestRenderer(t), &noLogo)))
}

func TestRenderWatermark(t *testing.T) {
	r := newTestRenderer(t, WithWatermark("DRAFT"))

	out := render(t, r, &Document{Sections: []Section{{Title: "S", Blocks: []Block{Paragraph{Text: longText(5000)}}}}})
	for _, p := range out.Pages {
		assert.Equal(t, []string{"DRAFT"}, p.Texts(RoleDecoration))
	}
}

func TestRenderVerificationCodes(t *testing.T) {
	tests := []struct {
		kind   CodeKind
		aspect float64
	}{
		{CodeQR, 1},
		{CodePDF417, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			r := newTestRenderer(t, WithVerificationCode(tt.kind, "https://reports.example.com/verify/"))
			doc := &Document{
				ReferenceID:        "RPT-2024-0042",
				IncludePageNumbers: true,
				Sections:           []Section{{Title: "S", Blocks: []Block{Paragraph{Text: longText(5000)}}}},
			}

			out := render(t, r, doc)
			for _, p := range out.Pages {
				var codes []Primitive
				for _, prim := range p.Primitives {
					if prim.Kind == PrimitiveCode {
						codes = append(codes, prim)
					}
				}
				require.Len(t, codes, 1)
				assert.Equal(t, RoleFooter, codes[0].Role)
				assert.Equal(t, string(tt.kind), codes[0].Text)
				assert.InDelta(t, tt.aspect, codes[0].W/codes[0].H, 1e-9)
				assert.GreaterOrEqual(t, codes[0].Y, r.Geometry().Bottom())
			}

			doc.ReferenceID = ""
			out = render(t, r, doc)
			for _, p := range out.Pages {
				assert.False(t, slices.ContainsFunc(p.Primitives, func(prim Primitive) bool { return prim.Kind == PrimitiveCode }))
			}
		})
	}
}

func TestRenderLetterhead(t *testing.T) {
	base := render(t, newTestRenderer(t, WithoutLogo()), &Document{Title: "Acme Letterhead", Sections: []Section{{Title: "Acme"}}})
	path := filepath.Join(t.TempDir(), "letterhead.pdf")
	require.NoError(t, os.WriteFile(path, base.Bytes(), 0o644))

	r := newTestRenderer(t, WithLetterhead(path))
	out := render(t, r, &Document{Sections: []Section{{Title: "S", Blocks: []Block{Paragraph{Text: longText(5000)}}}}})
	for _, p := range out.Pages {
		require.NotEmpty(t, p.Primitives)
		assert.Equal(t, PrimitiveLayer, p.Primitives[0].Kind)
		assert.Equal(t, RoleDecoration, p.Primitives[0].Role)
	}

	bad := newTestRenderer(t, WithLetterhead(filepath.Join(t.TempDir(), "nope.pdf")))
	_, err := bad.Render(context.Background(), &Document{Sections: []Section{{Title: "S"}}})
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "pages", re.Op)
}

func TestRenderCustomGeometry(t *testing.T) {
	r := newTestRenderer(t, WithUnit(UnitInch), WithPageSizeCustom(5, 7), WithMargins(0.5, 0.5, 0.5, 0.5), WithFontFamily("Times"))

	g := r.Geometry()
	assert.Equal(t, 4.0, g.ContentWidth())
	assert.Equal(t, 6.5, g.Bottom())

	out := render(t, r, &Document{Sections: []Section{{Title: "S", Blocks: []Block{Paragraph{Text: longText(2000)}}}}})
	require.Greater(t, out.PageCount, 1)
	checkLayout(t, r, out)
	for _, p := range out.Pages {
		for _, prim := range p.Primitives {
			if prim.Kind == PrimitiveText && prim.Role == RoleBody {
				assert.Equal(t, "Times", prim.Font.Family)
				assert.LessOrEqual(t, prim.X+prim.W, g.PageWidth-g.MarginRight+1e-6, prim.Text)
			}
		}
	}
}

func TestRenderHeaderTooTall(t *testing.T) {
	r := newTestRenderer(t, WithUnit(UnitPoint), WithPageSizeCustom(300, 90), WithMargins(20, 20, 20, 20))

	_, err := r.Render(context.Background(), &Document{Title: "T", PreparedFor: "P", GeneratedAt: time.Now(), Sections: []Section{{Title: "S"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"unit", WithUnit("furlong")},
		{"page size", WithPageSize("Napkin")},
		{"custom size", WithPageSizeCustom(-1, 100)},
		{"negative margin", WithMargins(-1, 10, 10, 10)},
		{"margins eat width", WithMargins(10, 150, 10, 150)},
		{"margins eat height", WithMargins(200, 10, 200, 10)},
		{"font", WithFontFamily("Comic Sans")},
		{"style", WithStyle(Style{FontFamily: "Helvetica"})},
		{"code", WithVerificationCode("aztec", "")},
		{"logo", WithLogo([]byte("not an image"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.opt)
			assert.Nil(t, r)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParam)

			var re *RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "new", re.Op)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	g := r.Geometry()
	assert.Equal(t, UnitMillimeter, g.Unit)
	assert.InDelta(t, 210, g.PageWidth, 0.01)
	assert.InDelta(t, 297, g.PageHeight, 0.01)
	assert.Equal(t, DefaultStyle(), r.Style())
}

func TestRenderErrorsMessage(t *testing.T) {
	err := newRenderError("serialize", &SerializationError{Err: errors.New("disk full")})
	assert.Equal(t, "pdfreport.serialize: serialization failed: disk full", err.Error())
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, "pdfreport.x: unknown error", newRenderError("x", nil).Error())
	assert.Equal(t, "image 3 (inline data): boom", (&ImageDecodeError{Index: 3, Err: errors.New("boom")}).Error())
}

func TestRenderedDocumentAccessors(t *testing.T) {
	out := render(t, newTestRenderer(t), &Document{Sections: []Section{{Title: "S"}}})

	data := out.Bytes()
	data[0] = 'X'
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")), "Bytes must return a copy")
	assert.Equal(t, len(data), out.Size())

	var buf bytes.Buffer
	n, err := out.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Size()), n)

	var fromReader bytes.Buffer
	_, err = fromReader.ReadFrom(out.Reader())
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), fromReader.Bytes())
}

func TestRenderNestedBulletsIndent(t *testing.T) {
	r := newTestRenderer(t)
	out := render(t, r, &Document{Title: "Goals", Sections: []Section{{
		Title: "Savings",
		Blocks: []Block{
			BulletItem{Text: "Save more"},
			BulletItem{Text: "Cut dining out", Level: 1},
			BulletItem{Text: "Cook on weekdays", Level: MaxBulletLevel},
			BulletItem{Text: "Batch lunches", Level: 9},
			BulletItem{Text: "Exercise", Level: -1},
		},
	}}})

	var xs []float64
	for _, p := range out.Pages[0].Primitives {
		if p.Kind == PrimitiveBullet {
			xs = append(xs, p.X)
		}
	}
	require.Len(t, xs, 5)

	step := r.Geometry().FromPoints(r.Style().BulletIndent)
	assert.InDelta(t, xs[0]+step, xs[1], 1e-9)
	assert.InDelta(t, xs[0]+float64(MaxBulletLevel)*step, xs[2], 1e-9)
	assert.InDelta(t, xs[2], xs[3], 1e-9)
	assert.InDelta(t, xs[0], xs[4], 1e-9)

	body := out.Pages[0].Texts(RoleBody)
	assert.Contains(t, body, "Cut dining out")
}
