package pageops

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lvillar/pdfreport"
)

// ExtractPages writes the given pages of doc to w. Page numbers are
// 1-based and may repeat or appear in any order.
func ExtractPages(w io.Writer, doc *pdfreport.RenderedDocument, pages ...int) error {
	if len(pages) == 0 {
		return fmt.Errorf("pageops: no pages specified: %w", ErrNoInput)
	}

	im := newImporter()
	if err := im.appendPages(doc, pages); err != nil {
		return err
	}
	return im.write(w)
}

// ExtractPageRange extracts a range of pages (inclusive, 1-based).
func ExtractPageRange(w io.Writer, doc *pdfreport.RenderedDocument, start, end int) error {
	if start < 1 || end < start {
		return fmt.Errorf("pageops: invalid page range [%d, %d]", start, end)
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return ExtractPages(w, doc, pages...)
}

// Split returns every page of doc as a standalone one-page PDF.
func Split(doc *pdfreport.RenderedDocument) ([][]byte, error) {
	out := make([][]byte, 0, doc.PageCount)
	for i := 1; i <= doc.PageCount; i++ {
		var buf bytes.Buffer
		if err := ExtractPages(&buf, doc, i); err != nil {
			return nil, fmt.Errorf("pageops: splitting page %d: %w", i, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}
