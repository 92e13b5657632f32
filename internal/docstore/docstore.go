// Package docstore maps usernames to user documents inside an object store.
// It owns the key layout, the JSON codec and the conditional
// read-modify-write loop every document mutation goes through.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// ErrMalformedDocument is returned by Load when the stored body is not a JSON document.
var ErrMalformedDocument = errors.New("malformed user document")

const (
	// DefaultPrefix namespaces all user documents.
	DefaultPrefix = "thesis/"

	documentName = "data.json"

	defaultRetries = 5
)

// Repository reads and writes user documents.
type Repository struct {
	store   objstore.Store
	prefix  string
	retries int
	now     func() time.Time
}

// Option customizes Repository.
type Option func(*Repository)

// WithPrefix overrides DefaultPrefix. The prefix should end with "/".
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// WithRetries sets how many times a conflicting write is retried.
func WithRetries(retries int) Option {
	return func(r *Repository) {
		r.retries = retries
	}
}

// WithClock replaces the time source used for defaults.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a Repository over store.
func New(store objstore.Store, options ...Option) *Repository {
	r := &Repository{
		store:   store,
		prefix:  DefaultPrefix,
		retries: defaultRetries,
		now:     time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Key is the object key of username's document.
func (r *Repository) Key(username string) string {
	return r.prefix + username + "/" + documentName
}

// Prefix is the listing prefix covering every user document.
func (r *Repository) Prefix() string {
	return r.prefix
}

// UsernameFromKey reverses Key. Keys of another shape, or carrying an
// invalid username, are rejected.
func (r *Repository) UsernameFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != documentName {
		return "", false
	}
	if !validation.IsUsername(parts[0]) {
		return "", false
	}
	return parts[0], true
}

// Exists probes for username's document without reading it.
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	_, err := r.store.Head(ctx, r.Key(username))
	if errors.Is(err, objstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe user %s: %w", username, err)
	}
	return true, nil
}

// Create writes an empty document for username unless one exists already.
// It reports whether this call created it.
func (r *Repository) Create(ctx context.Context, username string) (bool, error) {
	doc := models.UserDocument{
		Username:  username,
		CreatedAt: models.FormatTimestamp(r.now()),
		Comments:  []models.CommentEntry{},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}

	_, err = r.store.Put(ctx, r.Key(username), body, objstore.PutOptions{
		ContentType: objstore.ContentTypeJSON,
		IfNoneMatch: true,
	})
	if errors.Is(err, objstore.ErrPreconditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create user %s: %w", username, err)
	}

	return true, nil
}

// Load reads username's document together with the ETag it was read at.
func (r *Repository) Load(ctx context.Context, username string) (*models.UserDocument, string, error) {
	body, info, err := r.store.Get(ctx, r.Key(username))
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, "", apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user %s: %w", username, err)
	}

	doc, err := r.decode(username, body)
	if err != nil {
		return nil, "", err
	}

	return doc, info.ETag, nil
}

// decode is lenient about missing fields; the owner always comes from the key.
func (r *Repository) decode(username string, body []byte) (*models.UserDocument, error) {
	var doc models.UserDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w: %w", username, ErrMalformedDocument, err)
	}

	doc.Username = username
	if doc.CreatedAt == "" {
		doc.CreatedAt = models.FormatTimestamp(r.now())
	}
	if doc.Comments == nil {
		doc.Comments = []models.CommentEntry{}
	}

	return &doc, nil
}

// Mutation edits doc in place and reports whether anything changed.
// Returning an error aborts the update without writing.
type Mutation func(doc *models.UserDocument) (bool, error)

// Update applies mutate to username's document as a compare-and-swap on the
// document's ETag. When another writer got in between, the document is
// re-read and mutate runs again, up to the configured number of retries.
// It reports whether a write happened.
func (r *Repository) Update(ctx context.Context, username string, mutate Mutation) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= r.retries; attempt++ {
		doc, etag, err := r.Load(ctx, username)
		if err != nil {
			return false, err
		}

		changed, err := mutate(doc)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}

		body, err := json.Marshal(doc)
		if err != nil {
			return false, err
		}

		_, err = r.store.Put(ctx, r.Key(username), body, objstore.PutOptions{
			ContentType: objstore.ContentTypeJSON,
			IfMatch:     etag,
		})
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, objstore.ErrPreconditionFailed) {
			return false, fmt.Errorf("write user %s: %w", username, err)
		}

		lastErr = err
		logger.Log.Debugw("document changed concurrently, retrying", "username", username, "attempt", attempt+1, zap.Error(err))
	}

	return false, apperr.ErrWriteConflict.Wrap(lastErr)
}

// Page is one page of a scan over user documents.
type Page struct {
	// Usernames lists the owners of well-formed document keys, in key order.
	Usernames []string

	// Cursor continues the scan when Truncated is set.
	Cursor    string
	Truncated bool
}

// ListPage lists up to limit object keys after cursor and keeps the ones
// that are user documents. Fewer than limit usernames may come back.
func (r *Repository) ListPage(ctx context.Context, cursor string, limit int) (Page, error) {
	listing, err := r.store.List(ctx, objstore.ListOptions{
		Prefix: r.prefix,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list user documents: %w", err)
	}

	page := Page{
		Cursor:    listing.Cursor,
		Truncated: listing.Truncated,
	}
	for _, obj := range listing.Objects {
		username, ok := r.UsernameFromKey(obj.Key)
		if !ok {
			continue
		}
		page.Usernames = append(page.Usernames, username)
	}

	return page, nil
}
