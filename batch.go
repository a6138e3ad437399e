package pdfreport

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of rendering one document of a batch.
type Result struct {
	Doc *RenderedDocument
	Err error
}

// RenderAll renders docs concurrently with at most limit renders in
// flight (unbounded when limit < 1). Results are in input order; one
// failing document does not stop the others.
func RenderAll(ctx context.Context, r *Renderer, docs []*Document, limit int) []Result {
	results := make([]Result, len(docs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, doc := range docs {
		g.Go(func() error {
			out, err := r.Render(ctx, doc)
			results[i] = Result{Doc: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
