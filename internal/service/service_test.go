package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/memory"
)

const testSecret = "test-secret"

// tickingClock returns strictly increasing instants, one millisecond apart.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	store   *memory.MemoryStorage
	docs    *docstore.Repository
	auth    *auth.Auth
	service *Service
}

func newFixture(t *testing.T, options ...Option) *fixture {
	t.Helper()

	clock := newTickingClock()
	store := memory.New()
	docs := docstore.New(store, docstore.WithClock(clock.Now))
	authenticator := auth.New(testSecret)

	seq := 0
	var mu sync.Mutex
	newID := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("c%04d", seq)
	}

	options = append([]Option{WithClock(clock.Now), WithIDGenerator(newID)}, options...)

	return &fixture{
		store:   store,
		docs:    docs,
		auth:    authenticator,
		service: New(docs, authenticator, options...),
	}
}

func (f *fixture) register(t *testing.T, username string) {
	t.Helper()
	_, _, err := f.service.CreateUser(context.Background(), username)
	require.NoError(t, err)
}

func (f *fixture) post(t *testing.T, username, threadID, text string) models.CommentEntry {
	t.Helper()
	comment, err := f.service.PostComment(context.Background(), username, threadID, text)
	require.NoError(t, err)
	return comment
}

type fakeRecorder struct {
	mu        sync.Mutex
	scans     []int
	truncated []bool
	hits      int
	misses    int
	conflicts int
}

func (r *fakeRecorder) RecordThreadScan(documents int, truncated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, documents)
	r.truncated = append(r.truncated, truncated)
}

func (r *fakeRecorder) RecordCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *fakeRecorder) RecordWriteConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

// mapCache is an in-process threadcache.Cache.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string]*models.ThreadListing
	generations map[string]int64
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{
		entries:     map[string]*models.ThreadListing{},
		generations: map[string]int64{},
	}
}

func (c *mapCache) Generation(_ context.Context, threadID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[threadID], nil
}

func (c *mapCache) Get(_ context.Context, threadID string) (*models.ThreadListing, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	listing, ok := c.entries[threadID]
	return listing, ok, nil
}

func (c *mapCache) Set(_ context.Context, listing *models.ThreadListing, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[listing.ThreadID] != generation {
		return nil
	}
	c.entries[listing.ThreadID] = listing
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, threadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, threadID)
	c.generations[threadID]++
	c.invalidated = append(c.invalidated, threadID)
	return nil
}

func (c *mapCache) Close() error {
	return nil
}

func putRaw(t *testing.T, store objstore.Store, key, body string) {
	t.Helper()
	_, err := store.Put(context.Background(), key, []byte(body), objstore.PutOptions{})
	require.NoError(t, err)
}
