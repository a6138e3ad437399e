// Package objecturl stores rendered reports and hands back addressable
// URLs for them.
//
// A Store keeps each blob until it expires or the caller revokes it. The
// renderer never revokes: whoever published a report owns its URL.
package objecturl

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lvillar/pdfreport"
)

var (
	ErrNotFound = errors.New("objecturl: object not found")
	ErrEmpty    = errors.New("objecturl: empty object")
)

// Object describes a stored blob.
type Object struct {
	ID          string
	URL         string
	ContentType string
	Size        int
	Expires     time.Time // zero when the blob does not expire
}

// Store persists blobs and resolves them by ID.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (*Object, error)
	Get(ctx context.Context, id string) (data []byte, contentType string, err error)
	Revoke(ctx context.Context, id string) error
}

// Publish stores a rendered report and returns its object.
func Publish(ctx context.Context, s Store, doc *pdfreport.RenderedDocument) (*Object, error) {
	return s.Put(ctx, doc.Bytes(), pdfreport.ContentType)
}

func newID() string { return uuid.NewString() }

// validID reports whether id could have been issued by newID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func joinURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
