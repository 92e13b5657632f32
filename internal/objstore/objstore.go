// Package objstore describes the minimal object-store contract the service
// persists user documents in: presence probes, whole-object reads and writes,
// conditional writes keyed on ETags, and cursor-paginated prefix listings.
//
// Backends live in subpackages: memory (tests, single process), s3store
// (S3/R2/MinIO via minio-go) and sqlstore (PostgreSQL or SQLite tables).
package objstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrPreconditionFailed is returned when a conditional write loses:
	// the stored ETag differs from IfMatch, or IfNoneMatch was set and the key exists.
	ErrPreconditionFailed = errors.New("object precondition failed")
)

// ContentTypeJSON is the content type documents are stored with.
const ContentTypeJSON = "application/json; charset=utf-8"

// ObjectInfo describes a stored object without its body.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
}

// PutOptions makes a write conditional.
type PutOptions struct {
	ContentType string

	// IfMatch, when set, only lets the write land if the stored ETag equals it.
	IfMatch string

	// IfNoneMatch, when true, only lets the write land if the key is absent.
	IfNoneMatch bool
}

// ListOptions selects one page of a prefix listing.
type ListOptions struct {
	Prefix string

	// Cursor is the opaque continuation token from the previous page; empty starts over.
	Cursor string

	// Limit caps the number of keys in the page.
	Limit int
}

// ListPage is one page of a listing, ordered by key.
type ListPage struct {
	Objects []ObjectInfo

	// Truncated reports that more keys follow; Cursor then continues after this page.
	Truncated bool
	Cursor    string
}

// Store is implemented by every backend.
type Store interface {
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (ObjectInfo, error)
	List(ctx context.Context, opts ListOptions) (ListPage, error)
	Ping(ctx context.Context) error
	Close() error
}
