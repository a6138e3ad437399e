// Package pdfreport renders structured reports into paginated PDF files.
//
// A Document holds a title, header details and an ordered list of sections.
// Each section carries blocks: paragraphs, headings, bullet items, images
// and dividers. The renderer lays the blocks out top to bottom, estimating
// each block's height first and starting a new page when it would not fit.
// Every page gets the same header, and the footer shows "Page N of M" once
// the total is known.
//
// Basic usage:
//
//	r, err := pdfreport.New(pdfreport.WithPageSize(pdfreport.PageSizeA4))
//	if err != nil {
//		return err
//	}
//	out, err := r.Render(ctx, &pdfreport.Document{
//		Title:              "Monthly Report",
//		PreparedFor:        "Jane Doe",
//		IncludePageNumbers: true,
//		Sections: []pdfreport.Section{{
//			Title:  "Health",
//			Blocks: []pdfreport.Block{pdfreport.Paragraph{Text: "Sleep improved."}},
//		}},
//	})
//	if err != nil {
//		return err
//	}
//	_, err = out.WriteTo(w)
//
// A Renderer is safe for concurrent use; RenderAll renders a batch with
// bounded concurrency. Images that cannot be loaded are replaced by a
// placeholder paragraph and reported in RenderedDocument.Warnings.
package pdfreport
