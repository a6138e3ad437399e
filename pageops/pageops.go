// Package pageops combines and slices rendered reports at the page level.
//
// Source pages are imported as form templates with the gofpdi contrib
// package and placed on fresh pages of the same size, so every page keeps
// the header, footer and page numbering it was rendered with.
package pageops

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/lvillar/pdfreport"
)

// ErrNoInput is returned when there is nothing to write.
var ErrNoInput = errors.New("pageops: no input")

// A4 in points, used when a source page reports no media box.
const (
	defaultWidth  = 595.28
	defaultHeight = 841.89
)

func newBasePDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	return pdf
}

// importer places pages of any number of rendered documents into one
// output. Sharing one gofpdi importer keeps template names unique across
// sources.
type importer struct {
	pdf *gofpdf.Fpdf
	imp *gofpdi.Importer

	// gofpdi keys its readers by stream address, so every source stream
	// stays reachable until the output is written.
	sources []*io.ReadSeeker
}

func newImporter() *importer {
	return &importer{pdf: newBasePDF(), imp: gofpdi.NewImporter()}
}

// appendPages imports the given 1-based pages of doc. The importer
// reports malformed input by panicking.
func (im *importer) appendPages(doc *pdfreport.RenderedDocument, pages []int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pageops: importing pages: %v", r)
		}
	}()

	for _, n := range pages {
		if n < 1 || n > doc.PageCount {
			return fmt.Errorf("pageops: page %d out of range [1, %d]", n, doc.PageCount)
		}
	}

	rs := new(io.ReadSeeker)
	*rs = bytes.NewReader(doc.Bytes())
	im.sources = append(im.sources, rs)
	for _, n := range pages {
		tpl := im.imp.ImportPageFromStream(im.pdf, rs, n, "/MediaBox")
		w, h := pageSize(im.imp, n)
		im.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		im.imp.UseImportedTemplate(im.pdf, tpl, 0, 0, w, h)
	}
	return im.pdf.Error()
}

// pageSize reads the media box of page n of the current source.
func pageSize(imp *gofpdi.Importer, n int) (w, h float64) {
	if dims, ok := imp.GetPageSizes()[n]; ok {
		if mb, ok := dims["/MediaBox"]; ok && mb["w"] > 0 && mb["h"] > 0 {
			return mb["w"], mb["h"]
		}
	}
	return defaultWidth, defaultHeight
}

func allPages(doc *pdfreport.RenderedDocument) []int {
	pages := make([]int, doc.PageCount)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

func (im *importer) write(w io.Writer) error {
	if err := im.pdf.Output(w); err != nil {
		return fmt.Errorf("pageops: writing output: %w", err)
	}
	return nil
}
