package pdfreport

import (
	"fmt"
	"strings"
)

// Measurement units accepted by WithUnit.
const (
	UnitPoint      = "pt"
	UnitMillimeter = "mm"
	UnitCentimeter = "cm"
	UnitInch       = "in"
)

// Named page sizes accepted by WithPageSize.
const (
	PageSizeA3     = "A3"
	PageSizeA4     = "A4"
	PageSizeA5     = "A5"
	PageSizeLetter = "Letter"
	PageSizeLegal  = "Legal"
)

// page sizes in points, portrait
var namedSizes = map[string][2]float64{
	"a3":     {841.89, 1190.55},
	"a4":     {595.28, 841.89},
	"a5":     {420.94, 595.28},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// Geometry is the fixed page and margin layout used for every page of a
// document. All values are in the document unit.
type Geometry struct {
	Unit         string
	PageWidth    float64
	PageHeight   float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
}

// ContentWidth returns the usable horizontal space between the side margins.
func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - g.MarginLeft - g.MarginRight
}

// Bottom returns the lowest Y a block may reach on a page.
func (g Geometry) Bottom() float64 {
	return g.PageHeight - g.MarginBottom
}

// PointsPerUnit is the scale between the document unit and PDF points.
func (g Geometry) PointsPerUnit() float64 {
	k, _ := pointsPerUnit(g.Unit)
	return k
}

// FromPoints converts a length in points (font sizes) to the document unit.
func (g Geometry) FromPoints(pt float64) float64 {
	return pt / g.PointsPerUnit()
}

func (g Geometry) validate() error {
	if _, err := pointsPerUnit(g.Unit); err != nil {
		return err
	}
	if g.PageWidth <= 0 || g.PageHeight <= 0 {
		return fmt.Errorf("%w: page size %gx%g", ErrInvalidParam, g.PageWidth, g.PageHeight)
	}
	if g.MarginTop < 0 || g.MarginRight < 0 || g.MarginBottom < 0 || g.MarginLeft < 0 {
		return fmt.Errorf("%w: negative margin", ErrInvalidParam)
	}
	if g.ContentWidth() <= 0 {
		return fmt.Errorf("%w: margins leave no content width", ErrInvalidParam)
	}
	if g.MarginTop >= g.Bottom() {
		return fmt.Errorf("%w: margins leave no content height", ErrInvalidParam)
	}
	return nil
}

func pointsPerUnit(unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case "pt", "point":
		return 1, nil
	case "mm":
		return 72 / 25.4, nil
	case "cm":
		return 72 / 2.54, nil
	case "in", "inch":
		return 72, nil
	}
	return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidParam, unit)
}

// pageSize resolves a named size to width and height in the given unit.
func pageSize(name, unit string) (w, h float64, err error) {
	dims, ok := namedSizes[strings.ToLower(name)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown page size %q", ErrInvalidParam, name)
	}
	k, err := pointsPerUnit(unit)
	if err != nil {
		return 0, 0, err
	}
	return dims[0] / k, dims[1] / k, nil
}

// gofpdfUnit maps a unit name to the string gofpdf expects.
func gofpdfUnit(unit string) string {
	switch strings.ToLower(unit) {
	case "pt", "point":
		return "pt"
	case "cm":
		return "cm"
	case "in", "inch":
		return "inch"
	}
	return "mm"
}
