package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// ListComments gathers every comment of threadID across user documents,
// ordered by creation time. At most the scan cap of documents is visited;
// Truncated reports that more were left unvisited.
func (s *Service) ListComments(ctx context.Context, threadID string) (*models.ThreadListing, error) {
	if err := validation.ThreadID(threadID); err != nil {
		return nil, err
	}

	cached, ok, err := s.cache.Get(ctx, threadID)
	if err != nil {
		logger.Log.Warnw("thread cache lookup failed", "thread_id", threadID, "error", err)
	}
	s.metrics.RecordCacheLookup(ok)
	if ok {
		return cached, nil
	}

	// The generation is read before scanning so that a write landing during
	// the scan keeps this listing out of the cache.
	generation, err := s.cache.Generation(ctx, threadID)
	cacheable := err == nil
	if err != nil {
		logger.Log.Warnw("thread cache generation lookup failed", "thread_id", threadID, "error", err)
	}

	listing, visited, err := s.scanThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordThreadScan(visited, listing.Truncated)
	if listing.Truncated {
		logger.Log.Infow("thread scan hit the cap", "thread_id", threadID, "visited", visited)
	}

	if cacheable {
		if err := s.cache.Set(ctx, listing, generation); err != nil {
			logger.Log.Warnw("thread cache store failed", "thread_id", threadID, "error", err)
		}
	}

	return listing, nil
}

func (s *Service) scanThread(ctx context.Context, threadID string) (*models.ThreadListing, int, error) {
	listing := &models.ThreadListing{
		ThreadID: threadID,
		Comments: []models.ThreadComment{},
	}

	visited := 0
	cursor := ""
	for {
		page, err := s.docs.ListPage(ctx, cursor, s.pageSize)
		if err != nil {
			return nil, visited, err
		}

		usernames := page.Usernames
		if remaining := s.scanCap - visited; len(usernames) > remaining {
			usernames = usernames[:remaining]
			listing.Truncated = true
		}

		found, err := s.collect(ctx, threadID, usernames)
		if err != nil {
			return nil, visited, err
		}
		listing.Comments = append(listing.Comments, found...)
		visited += len(usernames)

		if listing.Truncated || !page.Truncated {
			break
		}
		cursor = page.Cursor
	}

	slices.SortStableFunc(listing.Comments, func(a, b models.ThreadComment) int {
		return strings.Compare(a.CreatedAt, b.CreatedAt)
	})

	return listing, visited, nil
}

// collect reads the documents of usernames concurrently and returns their
// comments on threadID in username order.
func (s *Service) collect(ctx context.Context, threadID string, usernames []string) ([]models.ThreadComment, error) {
	perUser := make([][]models.ThreadComment, len(usernames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.scanConcurrency)
	for i, username := range usernames {
		g.Go(func() error {
			doc, _, err := s.docs.Load(gctx, username)
			switch {
			case errors.Is(err, apperr.ErrUserNotFound):
				return nil
			case errors.Is(err, docstore.ErrMalformedDocument):
				logger.Log.Warnw("skipping malformed user document", "username", username, "error", err)
				return nil
			case err != nil:
				return err
			}

			for _, comment := range doc.Comments {
				if comment.ThreadID == threadID {
					perUser[i] = append(perUser[i], models.ThreadComment{
						CommentEntry: comment,
						Username:     username,
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []models.ThreadComment
	for _, comments := range perUser {
		result = append(result, comments...)
	}
	return result, nil
}
