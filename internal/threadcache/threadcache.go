// Package threadcache keeps recently aggregated thread listings so repeated
// reads of a busy thread do not rescan every user document.
//
// Every thread carries a generation counter that Invalidate bumps. A listing
// is stored only when the generation read before its scan is still current,
// so a scan that overlapped a write never caches its older snapshot.
package threadcache

import (
	"context"

	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

// Cache stores thread listings by thread id.
type Cache interface {
	// Get reports a cached listing. A miss is (nil, false, nil).
	Get(ctx context.Context, threadID string) (*models.ThreadListing, bool, error)
	// Generation returns the thread's current generation. Read it before
	// scanning and pass it to Set.
	Generation(ctx context.Context, threadID string) (int64, error)
	// Set stores listing unless the thread was invalidated after generation was read.
	Set(ctx context.Context, listing *models.ThreadListing, generation int64) error
	// Invalidate drops the cached listing and bumps the generation.
	Invalidate(ctx context.Context, threadID string) error
	Close() error
}

// Noop never caches anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.ThreadListing, bool, error) {
	return nil, false, nil
}

func (Noop) Generation(context.Context, string) (int64, error) {
	return 0, nil
}

func (Noop) Set(context.Context, *models.ThreadListing, int64) error {
	return nil
}

func (Noop) Invalidate(context.Context, string) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
