package service

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
	"github.com/patric-chuzhbe/thesiscomments/internal/validation"
)

// PostComment appends a comment to username's document. username is the
// authenticated identity; the document written is always the caller's own.
func (s *Service) PostComment(ctx context.Context, username, threadID, rawText string) (models.CommentEntry, error) {
	if err := validation.ThreadID(threadID); err != nil {
		return models.CommentEntry{}, err
	}
	text, err := validation.CommentText(rawText)
	if err != nil {
		return models.CommentEntry{}, err
	}

	comment := models.CommentEntry{
		ID:        s.newID(),
		ThreadID:  threadID,
		Text:      text,
		CreatedAt: models.FormatTimestamp(s.now()),
	}

	_, err = s.docs.Update(ctx, username, func(doc *models.UserDocument) (bool, error) {
		if len(doc.Comments) >= MaxCommentsPerUser {
			return false, apperr.ErrTooManyComments
		}
		doc.Comments = append(doc.Comments, comment)
		return true, nil
	})
	if err != nil {
		s.observeWriteError(err)
		return models.CommentEntry{}, err
	}

	s.invalidateThread(ctx, threadID)

	return comment, nil
}

// DeleteComment removes username's comment commentID from threadID and
// reports whether anything was removed. Missing comments are not an error.
func (s *Service) DeleteComment(ctx context.Context, username, threadID, commentID string) (bool, error) {
	if err := validation.ThreadID(threadID); err != nil {
		return false, err
	}
	if err := validation.CommentID(commentID); err != nil {
		return false, err
	}

	deleted, err := s.docs.Update(ctx, username, func(doc *models.UserDocument) (bool, error) {
		kept := doc.Comments[:0]
		for _, comment := range doc.Comments {
			if comment.ThreadID == threadID && comment.ID == commentID {
				continue
			}
			kept = append(kept, comment)
		}
		removed := len(kept) != len(doc.Comments)
		doc.Comments = kept
		return removed, nil
	})
	if err != nil {
		s.observeWriteError(err)
		return false, err
	}

	if deleted {
		s.invalidateThread(ctx, threadID)
	}

	return deleted, nil
}

func (s *Service) observeWriteError(err error) {
	if errors.Is(err, apperr.ErrWriteConflict) {
		s.metrics.RecordWriteConflict()
	}
}

// invalidateThread is best effort: a stale entry expires with its TTL.
func (s *Service) invalidateThread(ctx context.Context, threadID string) {
	if err := s.cache.Invalidate(ctx, threadID); err != nil {
		logger.Log.Warnw("thread cache invalidation failed", "thread_id", threadID, "error", err)
	}
}
