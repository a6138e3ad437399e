package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage(w, h)))
	return buf.Bytes()
}

func assertPNG(t *testing.T, img *Image, w, h int) {
	t.Helper()
	require.NotNil(t, img)
	assert.Equal(t, w, img.Width)
	assert.Equal(t, h, img.Height)
	cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, w, cfg.Width)
	assert.Equal(t, h, cfg.Height)
}

func TestLoadInlineData(t *testing.T) {
	l := New(Options{DisableHTTP: true, DisableFS: true})

	img, err := l.Load(context.Background(), encodePNG(t, 12, 8), "ignored.png")
	require.NoError(t, err)
	assertPNG(t, img, 12, 8)
}

func TestLoadDataURI(t *testing.T) {
	l := New(Options{DisableHTTP: true, DisableFS: true})
	data := encodePNG(t, 5, 7)

	img, err := l.Load(context.Background(), nil, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assertPNG(t, img, 5, 7)

	img, err = l.Load(context.Background(), nil, "data:image/png;base64,"+base64.RawStdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assertPNG(t, img, 5, 7)

	_, err = l.Load(context.Background(), nil, "data:image/png;base64")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = l.Load(context.Background(), nil, "data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestLoadJPEGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, sampleImage(30, 20), nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	l := New(Options{DisableHTTP: true})
	img, err := l.Load(context.Background(), nil, path)
	require.NoError(t, err)
	assertPNG(t, img, 30, 20)

	img, err = l.Load(context.Background(), nil, "file://"+path)
	require.NoError(t, err)
	assertPNG(t, img, 30, 20)

	_, err = l.Load(context.Background(), nil, filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadHTTPRetries(t *testing.T) {
	data := encodePNG(t, 9, 9)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := New(Options{DisableFS: true, RetryMax: 2})
	l.client.RetryWaitMin = time.Millisecond
	l.client.RetryWaitMax = 5 * time.Millisecond

	img, err := l.Load(context.Background(), nil, srv.URL+"/chart.png")
	require.NoError(t, err)
	assertPNG(t, img, 9, 9)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoadHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l := New(Options{DisableFS: true})
	_, err := l.Load(context.Background(), nil, srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoadDisabledSources(t *testing.T) {
	l := New(Options{DisableHTTP: true, DisableFS: true})

	_, err := l.Load(context.Background(), nil, "https://example.com/a.png")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = l.Load(context.Background(), nil, "/etc/hosts")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = l.Load(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoadTooManyBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	data := encodePNG(t, 64, 64)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l := New(Options{DisableHTTP: true, MaxBytes: int64(len(data) - 1)})
	_, err := l.Load(context.Background(), nil, path)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeDownscales(t *testing.T) {
	img, err := Decode(encodePNG(t, 200, 100), 5000, 0)
	require.NoError(t, err)
	assertPNG(t, img, 100, 50)
}

func TestDecodeRejectsHugeImages(t *testing.T) {
	_, err := Decode(encodePNG(t, 200, 100), 0, 1000)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(nil, 0, 0)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode([]byte("definitely not an image"), 0, 0)
	assert.Error(t, err)
}
