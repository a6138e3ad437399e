package pageops

import (
	"fmt"
	"io"

	"github.com/lvillar/pdfreport"
)

// Merge writes all pages of docs, in order, as one PDF to w and returns the
// number of pages written. Each document keeps its own "Page N of M"
// footers.
func Merge(w io.Writer, docs ...*pdfreport.RenderedDocument) (int, error) {
	if len(docs) == 0 {
		return 0, ErrNoInput
	}

	im := newImporter()
	total := 0
	for i, doc := range docs {
		if doc == nil || doc.PageCount == 0 {
			return 0, fmt.Errorf("pageops: document %d: %w", i+1, ErrNoInput)
		}
		if err := im.appendPages(doc, allPages(doc)); err != nil {
			return 0, fmt.Errorf("pageops: merging document %d: %w", i+1, err)
		}
		total += doc.PageCount
	}

	if err := im.write(w); err != nil {
		return 0, err
	}
	return total, nil
}
