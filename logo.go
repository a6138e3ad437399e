package pdfreport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

var (
	builtinLogoOnce sync.Once
	builtinLogo     []byte
)

// defaultLogo returns the built-in header logo: a teal disc with a white
// ring, drawn at 96x96 pixels.
func defaultLogo() []byte {
	builtinLogoOnce.Do(func() {
		const size = 96
		img := image.NewNRGBA(image.Rect(0, 0, size, size))
		fill := color.NRGBA{R: 0, G: 121, B: 107, A: 255}
		ring := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		c := float64(size-1) / 2
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				d := math.Hypot(float64(x)-c, float64(y)-c)
				switch {
				case d <= c*0.55 && d >= c*0.42:
					img.SetNRGBA(x, y, ring)
				case d <= c:
					img.SetNRGBA(x, y, fill)
				}
			}
		}
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		builtinLogo = buf.Bytes()
	})
	return builtinLogo
}
