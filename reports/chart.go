package reports

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	chartWidth  = 480
	chartHeight = 200
	chartPad    = 10
)

var (
	chartBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	chartAxis       = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
	chartBar        = color.NRGBA{R: 0, G: 121, B: 107, A: 255}
)

// BarChart draws values as a PNG bar chart scaled to the largest value.
// Negative values are drawn as empty bars.
func BarChart(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("reports: no values to chart")
	}
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}

	img := image.NewNRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(chartBackground), image.Point{}, draw.Src)

	base := chartHeight - chartPad
	draw.Draw(img, image.Rect(chartPad, base, chartWidth-chartPad, base+1), image.NewUniform(chartAxis), image.Point{}, draw.Src)

	slot := (chartWidth - 2*chartPad) / len(values)
	gap := max(1, slot/5)
	for i, v := range values {
		if v <= 0 || peak <= 0 || slot <= gap {
			continue
		}
		h := int(float64(base-chartPad) * v / peak)
		x := chartPad + i*slot
		bar := image.Rect(x+gap/2, base-h, x+slot-gap/2, base)
		draw.Draw(img, bar, image.NewUniform(chartBar), image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
