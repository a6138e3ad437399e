// Package imageload turns image references into PNG data that a PDF
// writer can embed.
//
// Sources may be raw bytes, file paths, data: URIs or http(s) URLs. Images
// in PNG, JPEG, GIF, BMP, TIFF and WebP are decoded, normalized to 8-bit
// NRGBA, downscaled when they exceed the pixel budget, and re-encoded as PNG.
package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmpty       = errors.New("imageload: no image data")
	ErrUnsupported = errors.New("imageload: unsupported image reference")
	ErrTooLarge    = errors.New("imageload: image exceeds size limit")
)

// Image is a decoded image ready for embedding.
type Image struct {
	PNG    []byte
	Width  int // pixels
	Height int // pixels
}

// Options configures a Loader. Zero values select the defaults.
type Options struct {
	MaxPixels   int           // images above this are downscaled (default 16 MP)
	MaxDecode   int           // images above this are rejected (default 100 MP)
	MaxBytes    int64         // download/read limit (default 20 MiB)
	Timeout     time.Duration // per-request timeout for URLs (default 15s)
	RetryMax    int           // retries for URLs (default 2)
	DisableHTTP bool
	DisableFS   bool
	Logger      *zerolog.Logger // nil discards retry logs
}

// Loader fetches and normalizes images. It is safe for concurrent use.
type Loader struct {
	opts   Options
	client *retryablehttp.Client
}

// New creates a Loader.
func New(opts Options) *Loader {
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = 16 << 20
	}
	if opts.MaxDecode <= 0 {
		opts.MaxDecode = 100 << 20
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 20 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 2
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	client.Logger = leveledLogger{log}

	return &Loader{opts: opts, client: client}
}

// Load resolves an image. Inline data takes precedence over ref.
func (l *Loader) Load(ctx context.Context, data []byte, ref string) (*Image, error) {
	if len(data) == 0 {
		var err error
		data, err = l.fetch(ctx, strings.TrimSpace(ref))
		if err != nil {
			return nil, err
		}
	}
	return Decode(data, l.opts.MaxPixels, l.opts.MaxDecode)
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, ErrEmpty
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if l.opts.DisableHTTP {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, "remote images are disabled")
		}
		return l.download(ctx, ref)
	}

	if l.opts.DisableFS {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, "file images are disabled")
	}
	path := strings.TrimPrefix(ref, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageload: opening %s: %w", path, err)
	}
	defer f.Close()
	return readLimited(f, l.opts.MaxBytes)
}

func (l *Loader) download(ctx context.Context, ref string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("imageload: building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imageload: fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imageload: fetching %s: status %d", ref, resp.StatusCode)
	}
	return readLimited(resp.Body, l.opts.MaxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("imageload: reading: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrUnsupported)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("imageload: data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("imageload: data URI: %w", err)
	}
	return []byte(s), nil
}

// Decode decodes data in any registered format and returns it as an 8-bit
// PNG, downscaled to at most maxPixels pixels. Images whose header declares
// more than maxDecode pixels are rejected before decoding.
func Decode(data []byte, maxPixels, maxDecode int) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imageload: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("imageload: empty image %dx%d", cfg.Width, cfg.Height)
	}
	if maxDecode > 0 && cfg.Width*cfg.Height > maxDecode {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imageload: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxPixels > 0 && w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("imageload: encoding: %w", err)
	}
	return &Image{PNG: buf.Bytes(), Width: w, Height: h}, nil
}

// leveledLogger routes retryablehttp's logging through zerolog.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }
