package pdfreport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/pdfreport/imageload"
)

// imageErrorText replaces an image block that could not be loaded.
const imageErrorText = "[Error: could not add image]"

// resolvedImage is an Image block after its bytes were fetched and decoded,
// or after that failed.
type resolvedImage struct {
	Image
	index int
	png   []byte
	pxW   int
	pxH   int
	err   error
}

func (r *resolvedImage) Kind() BlockKind {
	if r.failed() {
		return KindParagraph
	}
	return KindImage
}

func (*resolvedImage) block() {}

func (r *resolvedImage) failed() bool { return r.err != nil }

func (r *resolvedImage) name() string { return fmt.Sprintf("image-%d", r.index) }

// Renderer lays out documents and writes them as PDF. It is immutable
// after New and safe for concurrent use.
type Renderer struct {
	cfg    *config
	geom   Geometry
	loader ImageLoader
	logo   *imageload.Image
}

// New creates a Renderer with the given options.
func New(opts ...Option) (*Renderer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	geom, err := cfg.geometry()
	if err != nil {
		return nil, newRenderError("new", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, newRenderError("new", err)
	}

	r := &Renderer{cfg: cfg, geom: geom, loader: cfg.loader}
	if r.loader == nil {
		r.loader = imageload.New(imageload.Options{Logger: &cfg.logger})
	}
	if !cfg.noLogo {
		data := cfg.logo
		if len(data) == 0 {
			data = defaultLogo()
		}
		logo, err := imageload.Decode(data, 1<<20, 0)
		if err != nil {
			return nil, newRenderError("new", fmt.Errorf("%w: logo: %v", ErrInvalidParam, err))
		}
		r.logo = logo
	}
	return r, nil
}

func (c *config) geometry() (Geometry, error) {
	g := Geometry{
		Unit:         c.unit,
		MarginTop:    c.margins[0],
		MarginRight:  c.margins[1],
		MarginBottom: c.margins[2],
		MarginLeft:   c.margins[3],
	}
	if c.customW != 0 || c.customH != 0 {
		g.PageWidth, g.PageHeight = c.customW, c.customH
	} else {
		w, h, err := pageSize(c.size, c.unit)
		if err != nil {
			return Geometry{}, err
		}
		g.PageWidth, g.PageHeight = w, h
	}
	return g, g.validate()
}

func (c *config) validate() error {
	switch strings.ToLower(c.style.FontFamily) {
	case "helvetica", "arial", "times", "courier":
	default:
		return fmt.Errorf("%w: font family %q is not a core font", ErrInvalidParam, c.style.FontFamily)
	}
	s := c.style
	if s.BodySize <= 0 || s.Heading1Size <= 0 || s.Heading2Size <= 0 || s.LineSpacing <= 0 {
		return fmt.Errorf("%w: font sizes and line spacing must be positive", ErrInvalidParam)
	}
	if s.ParagraphGap < 0 || s.BulletIndent < 0 || s.BulletRadius < 0 || s.ImageGutter < 0 || s.DividerSpace < 0 {
		return fmt.Errorf("%w: negative spacing", ErrInvalidParam)
	}
	switch c.code {
	case CodeNone, CodeQR, CodePDF417:
	default:
		return fmt.Errorf("%w: verification code %q", ErrInvalidParam, c.code)
	}
	if c.imageJobs < 1 {
		c.imageJobs = 1
	}
	return nil
}

// Geometry returns the page layout every document is rendered with.
func (r *Renderer) Geometry() Geometry { return r.geom }

// Style returns the typographic constants in use.
func (r *Renderer) Style() Style { return r.cfg.style }

func (r *Renderer) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &r.cfg.logger
}

// Render lays out doc and serializes it. Image failures are recovered and
// reported in the result's Warnings; any returned error is a *RenderError.
func (r *Renderer) Render(ctx context.Context, doc *Document) (*RenderedDocument, error) {
	start := time.Now()
	log := r.logger(ctx)

	if err := doc.Validate(); err != nil {
		return nil, newRenderError("validate", err)
	}

	blocks := r.resolveImages(ctx, doc.flatten())

	c := newCanvas(r.geom, doc.GeneratedAt)
	c.pdf.SetTitle(doc.title(), true)
	c.pdf.SetAuthor("pdfreport", true)
	if name := strings.TrimSpace(doc.PreparedFor); name != "" {
		c.pdf.SetSubject("Prepared for "+name, true)
	}

	var warnings []error
	for _, b := range blocks {
		ri, ok := b.(*resolvedImage)
		if !ok {
			continue
		}
		if !ri.failed() {
			if err := c.registerPNG(ri.name(), ri.png); err != nil {
				ri.err = err
			}
		}
		if ri.failed() {
			log.Warn().Err(ri.err).Int("block", ri.index).Str("ref", ri.Ref).Msg("image replaced by placeholder")
			warnings = append(warnings, &ImageDecodeError{Index: ri.index, Ref: ri.Ref, Err: ri.err})
		}
	}

	est := Estimator{
		Measurer: TextMeasurer{Metrics: NewCoreFontMetrics(r.geom.Unit)},
		Geometry: r.geom,
		Style:    r.cfg.style,
	}
	var logo *imageload.Image
	if doc.IncludeLogo {
		logo = r.logo
	}
	pm, err := newPageManager(c, est, doc, r.cfg, logo)
	if err != nil {
		return nil, newRenderError("pages", err)
	}
	est.UsableHeight = r.geom.Bottom() - r.geom.MarginTop - pm.HeaderHeight()
	if est.UsableHeight <= 0 {
		return nil, newRenderError("layout", fmt.Errorf("%w: header leaves no room for content", ErrInvalidParam))
	}

	cur := NewCursor(r.geom, pm)
	cur.BreakPage()
	width := r.geom.ContentWidth()
	for _, b := range blocks {
		h := est.Estimate(b, width)
		brk := false
		if !cur.Reserve(h) && !cur.FirstOnPage() {
			cur.BreakPage()
			brk = true
			log.Debug().Int("page", cur.PageIndex()+1).Str("kind", string(b.Kind())).Msg("page break")
		}
		top := cur.Y()
		lines := r.draw(c, est, b, top, width)
		c.place(Placement{Kind: b.Kind(), Y: top, Height: h, BreakBefore: brk, Lines: lines})
		cur.Advance(h)
	}

	pm.Finalize()

	var buf bytes.Buffer
	if err := c.output(&buf); err != nil {
		return nil, newRenderError("serialize", &SerializationError{Err: err})
	}

	out := &RenderedDocument{
		Pages:     c.pages,
		PageCount: c.pageCount(),
		Warnings:  warnings,
		data:      buf.Bytes(),
	}
	log.Info().
		Str("title", doc.title()).
		Int("pages", out.PageCount).
		Int("bytes", out.Size()).
		Int("warnings", len(warnings)).
		Dur("took", time.Since(start)).
		Msg("report rendered")
	return out, nil
}

// resolveImages loads every image block concurrently. Order is preserved
// and failures, including cancellation, are kept on the block.
func (r *Renderer) resolveImages(ctx context.Context, blocks []Block) []Block {
	out := slices.Clone(blocks)
	var g errgroup.Group
	g.SetLimit(r.cfg.imageJobs)
	for i, b := range blocks {
		img, ok := b.(Image)
		if !ok {
			continue
		}
		ri := &resolvedImage{Image: img, index: i}
		out[i] = ri
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				ri.err = err
				return nil
			}
			loaded, err := r.loader.Load(ctx, img.Data, img.Ref)
			switch {
			case err != nil:
				ri.err = err
			case loaded == nil || len(loaded.PNG) == 0:
				ri.err = errors.New("loader returned no image")
			default:
				ri.png, ri.pxW, ri.pxH = loaded.PNG, loaded.Width, loaded.Height
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// draw paints b with its top at y and returns the text lines it drew.
func (r *Renderer) draw(c *canvas, est Estimator, b Block, y, width float64) []string {
	left := r.geom.MarginLeft
	style := r.cfg.style

	switch v := b.(type) {
	case Paragraph:
		return drawLines(c, est, v.Text, left, y, width, style.bodyFont(), colorText)

	case BulletItem:
		indent := est.pt(style.BulletIndent)
		offset := est.BulletOffset(v.level())
		lh := est.LineHeight(style.BodySize)
		c.bullet(left+offset-indent/2, y+lh/2, est.pt(style.BulletRadius), colorText)
		return drawLines(c, est, v.Text, left+offset, y, width-offset, style.bodyFont(), colorText)

	case Heading:
		before, _ := style.headingSpace(v.level())
		return drawLines(c, est, v.Text, left, y+est.pt(before), width, style.headingFont(v.level()), colorText)

	case *resolvedImage:
		if v.failed() {
			return drawLines(c, est, imageErrorText, left, y, width, style.bodyFont(), colorError)
		}
		w, h, _ := est.ImageBox(v.Image, v.pxW, v.pxH, width)
		if w > 0 && h > 0 {
			c.image(v.name(), left+(width-w)/2, y, w, h)
		}
		return nil

	case Divider:
		space := est.pt(style.DividerSpace)
		c.rule(left, left+width, y+space/2, est.pt(0.5), colorRule)
		return nil
	}
	return nil
}

func drawLines(c *canvas, est Estimator, text string, x, y, width float64, font Font, color Color) []string {
	lines := est.Measurer.Wrap(text, width, font)
	lh := est.LineHeight(font.Size)
	for _, line := range lines {
		if line != "" {
			c.text(x, y+est.Baseline(lh, font.Size), line, font, color)
		}
		y += lh
	}
	return lines
}
