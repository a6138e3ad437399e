package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/doctpl"
	"github.com/lvillar/pdfreport/objecturl"
	"github.com/lvillar/pdfreport/pageops"
)

var errRenderTimeout = errors.New("render timed out")

const bundleConcurrency = 4

type reportResponse struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	ContentType string     `json:"contentType"`
	Pages       int        `json:"pages"`
	Size        int        `json:"size"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

type markdownRequest struct {
	Title              string `json:"title"`
	PreparedFor        string `json:"preparedFor,omitempty"`
	GeneratedAt        string `json:"generatedAt,omitempty"`
	IncludeLogo        bool   `json:"includeLogo,omitempty"`
	IncludePageNumbers *bool  `json:"includePageNumbers,omitempty"` // default true
	ReferenceID        string `json:"referenceId,omitempty"`
	Markdown           string `json:"markdown"`
}

type bundleRequest struct {
	Templates []json.RawMessage `json:"templates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (w *WebAPI) health(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func (w *WebAPI) createReport(rw http.ResponseWriter, req *http.Request) {
	body, err := w.readBody(rw, req)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	tpl, err := doctpl.Parse(body)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	w.renderTemplate(rw, req, tpl)
}

func (w *WebAPI) createMarkdownReport(rw http.ResponseWriter, req *http.Request) {
	body, err := w.readBody(rw, req)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	var mr markdownRequest
	if err := json.Unmarshal(body, &mr); err != nil {
		writeError(rw, http.StatusBadRequest, fmt.Errorf("parsing request: %w", err))
		return
	}

	numbers := mr.IncludePageNumbers == nil || *mr.IncludePageNumbers
	tpl := &doctpl.Template{
		Title:              mr.Title,
		PreparedFor:        mr.PreparedFor,
		GeneratedAt:        mr.GeneratedAt,
		IncludeLogo:        mr.IncludeLogo,
		IncludePageNumbers: numbers,
		ReferenceID:        mr.ReferenceID,
		Markdown:           mr.Markdown,
	}
	if strings.TrimSpace(mr.Markdown) == "" {
		writeError(rw, http.StatusBadRequest, errors.New("markdown is required"))
		return
	}
	w.renderTemplate(rw, req, tpl)
}

func (w *WebAPI) renderTemplate(rw http.ResponseWriter, req *http.Request, tpl *doctpl.Template) {
	doc, err := tpl.Build()
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}

	out, err := withTimeout(req.Context(), w.config.RenderTimeout, func(ctx context.Context) (*pdfreport.RenderedDocument, error) {
		return w.render(ctx, doc, tpl.Options()...)
	})
	if err != nil {
		renderFailed(rw, req, err)
		return
	}

	var warnings []string
	for _, warn := range out.Warnings {
		warnings = append(warnings, warn.Error())
	}
	w.respond(rw, req, out.Bytes(), out.PageCount, warnings)
}

func (w *WebAPI) createBundle(rw http.ResponseWriter, req *http.Request) {
	body, err := w.readBody(rw, req)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	var br bundleRequest
	if err := json.Unmarshal(body, &br); err != nil {
		writeError(rw, http.StatusBadRequest, fmt.Errorf("parsing request: %w", err))
		return
	}
	if len(br.Templates) == 0 {
		writeError(rw, http.StatusBadRequest, errors.New("templates are required"))
		return
	}

	docs := make([]*pdfreport.Document, len(br.Templates))
	opts := make([][]pdfreport.Option, len(br.Templates))
	for i, raw := range br.Templates {
		tpl, err := doctpl.Parse(raw)
		if err == nil {
			docs[i], err = tpl.Build()
		}
		if err != nil {
			writeError(rw, http.StatusBadRequest, fmt.Errorf("template %d: %w", i+1, err))
			return
		}
		opts[i] = tpl.Options()
	}

	b, err := withTimeout(req.Context(), w.config.RenderTimeout, func(ctx context.Context) (*bundle, error) {
		return w.renderBundle(ctx, docs, opts)
	})
	if err != nil {
		renderFailed(rw, req, err)
		return
	}
	w.respond(rw, req, b.data, b.pages, b.warnings)
}

type bundle struct {
	data     []byte
	pages    int
	warnings []string
}

// renderBundle renders every document concurrently and merges them in
// request order. Each report keeps its own page numbering.
func (w *WebAPI) renderBundle(ctx context.Context, docs []*pdfreport.Document, opts [][]pdfreport.Option) (*bundle, error) {
	rendered := make([]*pdfreport.RenderedDocument, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bundleConcurrency)
	for i := range docs {
		g.Go(func() error {
			out, err := w.render(gctx, docs[i], opts[i]...)
			if err != nil {
				return fmt.Errorf("report %d: %w", i+1, err)
			}
			rendered[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var b bundle
	for i, out := range rendered {
		for _, warn := range out.Warnings {
			b.warnings = append(b.warnings, fmt.Sprintf("report %d: %v", i+1, warn))
		}
	}
	var buf bytes.Buffer
	pages, err := pageops.Merge(&buf, rendered...)
	if err != nil {
		return nil, err
	}
	b.data, b.pages = buf.Bytes(), pages
	return &b, nil
}

// respond streams the PDF when the client accepts it and publishes it
// otherwise.
func (w *WebAPI) respond(rw http.ResponseWriter, req *http.Request, data []byte, pages int, warnings []string) {
	ctx := req.Context()
	log := zerolog.Ctx(ctx)

	if wantsPDF(req) {
		rw.Header().Set("Content-Type", pdfreport.ContentType)
		rw.Header().Set("Content-Length", strconv.Itoa(len(data)))
		rw.Header().Set("X-Page-Count", strconv.Itoa(pages))
		rw.WriteHeader(http.StatusOK)
		if _, err := rw.Write(data); err != nil {
			log.Warn().Err(err).Msg("writing pdf")
		}
		return
	}

	obj, err := w.config.Dependencies.Store.Put(ctx, data, pdfreport.ContentType)
	if err != nil {
		log.Error().Err(err).Msg("publishing report")
		writeError(rw, http.StatusInternalServerError, err)
		return
	}

	resp := reportResponse{
		ID:          obj.ID,
		URL:         obj.URL,
		ContentType: obj.ContentType,
		Pages:       pages,
		Size:        obj.Size,
		Warnings:    warnings,
	}
	if !obj.Expires.IsZero() {
		resp.ExpiresAt = &obj.Expires
	}
	writeJSON(rw, http.StatusCreated, resp)
}

func renderFailed(rw http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errRenderTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, pdfreport.ErrInvalidDocument), errors.Is(err, pdfreport.ErrInvalidParam):
		status = http.StatusBadRequest
	}
	zerolog.Ctx(req.Context()).Error().Err(err).Int("status", status).Msg("render failed")
	writeError(rw, status, err)
}

// withTimeout bounds fn by timeout. A call that outlives it finishes in
// the background and its result is dropped.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s", errRenderTimeout, timeout)
	}
	return res.v, res.err
}

func (w *WebAPI) getBlob(rw http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	data, ct, err := w.config.Dependencies.Store.Get(req.Context(), id)
	if errors.Is(err, objecturl.ErrNotFound) {
		writeError(rw, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	if ct == "" {
		ct = pdfreport.ContentType
	}
	rw.Header().Set("Content-Type", ct)
	rw.Header().Set("Content-Length", strconv.Itoa(len(data)))
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write(data)
}

func (w *WebAPI) deleteBlob(rw http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	err := w.config.Dependencies.Store.Revoke(req.Context(), id)
	if errors.Is(err, objecturl.ErrNotFound) {
		writeError(rw, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (w *WebAPI) readBody(rw http.ResponseWriter, req *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, w.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func wantsPDF(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), pdfreport.ContentType)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, errorResponse{Error: err.Error()})
}
