package pdfreport

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfreport/imageload"
)

// Option is a functional option for configuring a Renderer via New.
type Option func(*config)

// ImageLoader resolves the bytes or reference of an image block into a
// PNG that gofpdf can embed.
type ImageLoader interface {
	Load(ctx context.Context, data []byte, ref string) (*imageload.Image, error)
}

// CodeKind selects the symbology of the footer verification code.
type CodeKind string

const (
	CodeNone   CodeKind = ""
	CodeQR     CodeKind = "qr"
	CodePDF417 CodeKind = "pdf417"
)

type config struct {
	unit       string
	size       string
	customW    float64
	customH    float64
	margins    [4]float64 // top, right, bottom, left
	style      Style
	logo       []byte
	noLogo     bool
	letterhead string
	watermark  string
	code       CodeKind
	codeBase   string
	loader     ImageLoader
	imageJobs  int
	logger     zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		unit:      UnitMillimeter,
		size:      PageSizeA4,
		margins:   [4]float64{20, 18, 22, 18},
		style:     DefaultStyle(),
		imageJobs: 4,
		logger:    zerolog.Nop(),
	}
}

// WithUnit sets the measurement unit for page dimensions and margins.
// Use UnitPoint ("pt"), UnitMillimeter ("mm"), UnitCentimeter ("cm"), or UnitInch ("in").
// Margins keep their numeric values, so set them in the same unit.
func WithUnit(unit string) Option {
	return func(c *config) {
		c.unit = unit
	}
}

// WithPageSize sets the page size by name.
// Use PageSizeA3, PageSizeA4, PageSizeA5, PageSizeLetter or PageSizeLegal.
func WithPageSize(size string) Option {
	return func(c *config) {
		c.size = size
		c.customW, c.customH = 0, 0
	}
}

// WithPageSizeCustom sets a custom page size in the configured unit.
func WithPageSizeCustom(width, height float64) Option {
	return func(c *config) {
		c.customW, c.customH = width, height
	}
}

// WithMargins sets the page margins in the configured unit.
func WithMargins(top, right, bottom, left float64) Option {
	return func(c *config) {
		c.margins = [4]float64{top, right, bottom, left}
	}
}

// WithFontFamily selects the core font family: Helvetica, Times or Courier.
func WithFontFamily(family string) Option {
	return func(c *config) {
		c.style.FontFamily = family
	}
}

// WithStyle replaces the typographic constants.
func WithStyle(s Style) Option {
	return func(c *config) {
		c.style = s
	}
}

// WithLogo sets the logo drawn in the header of documents that ask for one.
// Any format the image loader understands is accepted. Without this option
// a built-in logo is used.
func WithLogo(data []byte) Option {
	return func(c *config) {
		c.logo = data
	}
}

// WithoutLogo suppresses the header logo even for documents that ask for one.
func WithoutLogo() Option {
	return func(c *config) {
		c.noLogo = true
	}
}

// WithLetterhead draws the first page of the given PDF file behind every page.
func WithLetterhead(path string) Option {
	return func(c *config) {
		c.letterhead = path
	}
}

// WithWatermark stamps rotated, translucent text across every page.
func WithWatermark(text string) Option {
	return func(c *config) {
		c.watermark = text
	}
}

// WithVerificationCode adds a machine-readable code to every footer of
// documents that carry a ReferenceID. The code encodes baseURL followed by
// the reference.
func WithVerificationCode(kind CodeKind, baseURL string) Option {
	return func(c *config) {
		c.code = kind
		c.codeBase = baseURL
	}
}

// WithImageLoader replaces the loader used for image blocks and the logo.
func WithImageLoader(l ImageLoader) Option {
	return func(c *config) {
		c.loader = l
	}
}

// WithImageConcurrency bounds how many images are fetched at once.
func WithImageConcurrency(n int) Option {
	return func(c *config) {
		c.imageJobs = n
	}
}

// WithLogger sets the logger used when the render context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
