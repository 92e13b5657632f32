// Package service implements the comment operations on top of per-user
// documents: registration, appending and removing comments, and the
// cross-user thread listing.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/threadcache"
)

const (
	// MaxCommentsPerUser caps the comments one user document may hold.
	MaxCommentsPerUser = 2000

	// MaxUsersScan caps the user documents a single thread listing visits.
	MaxUsersScan = 500

	// ScanPageSize is the number of keys requested per listing page.
	ScanPageSize = 100

	defaultScanConcurrency = 8
)

type documentStore interface {
	Exists(ctx context.Context, username string) (bool, error)

	Create(ctx context.Context, username string) (bool, error)

	Load(ctx context.Context, username string) (*models.UserDocument, string, error)

	Update(ctx context.Context, username string, mutate docstore.Mutation) (bool, error)

	ListPage(ctx context.Context, cursor string, limit int) (docstore.Page, error)
}

type tokenIssuer interface {
	Issue(username string) (string, error)
}

type recorder interface {
	RecordThreadScan(documents int, truncated bool)

	RecordCacheLookup(hit bool)

	RecordWriteConflict()
}

type noopRecorder struct{}

func (noopRecorder) RecordThreadScan(int, bool) {}

func (noopRecorder) RecordCacheLookup(bool) {}

func (noopRecorder) RecordWriteConflict() {}

type Service struct {
	docs    documentStore
	tokens  tokenIssuer
	cache   threadcache.Cache
	metrics recorder

	scanCap         int
	pageSize        int
	scanConcurrency int

	now   func() time.Time
	newID func() string
}

// Option customizes Service.
type Option func(*Service)

func WithThreadCache(cache threadcache.Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithMetrics(metrics recorder) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithScanConcurrency bounds parallel document reads within one listing page.
func WithScanConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scanConcurrency = n
		}
	}
}

// WithScanLimits overrides MaxUsersScan and ScanPageSize.
func WithScanLimits(scanCap, pageSize int) Option {
	return func(s *Service) {
		s.scanCap = scanCap
		s.pageSize = pageSize
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the comment id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func New(docs documentStore, tokens tokenIssuer, options ...Option) *Service {
	s := &Service{
		docs:            docs,
		tokens:          tokens,
		cache:           threadcache.Noop{},
		metrics:         noopRecorder{},
		scanCap:         MaxUsersScan,
		pageSize:        ScanPageSize,
		scanConcurrency: defaultScanConcurrency,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}
	return s
}
