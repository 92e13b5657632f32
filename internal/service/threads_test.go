package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/models"
)

func usernamesOf(listing *models.ThreadListing) []string {
	result := []string{}
	for _, c := range listing.Comments {
		result = append(result, c.Username)
	}
	return result
}

func TestListCommentsOrdersAcrossUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		f.register(t, name)
	}

	f.post(t, "carol", "t1", "1")
	f.post(t, "alice", "t1", "2")
	f.post(t, "bob", "other", "not listed")
	f.post(t, "bob", "t1", "3")
	f.post(t, "carol", "t1", "4")

	listing, err := f.service.ListComments(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", listing.ThreadID)
	assert.False(t, listing.Truncated)

	texts := []string{}
	for _, c := range listing.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, texts)
	assert.Equal(t, []string{"carol", "alice", "bob", "carol"}, usernamesOf(listing))
}

func TestListCommentsEmptyThread(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	listing, err := f.service.ListComments(context.Background(), "nobody-here")
	require.NoError(t, err)
	assert.NotNil(t, listing.Comments)
	assert.Empty(t, listing.Comments)
	assert.False(t, listing.Truncated)
}

func TestListCommentsStableForEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	same := `{"createdAt":"2026-01-01T00:00:00.000Z","comments":[{"id":"%s","threadId":"t","text":"x","createdAt":"2026-01-01T00:00:00.000Z"}]}`
	for _, name := range []string{"dave", "bob", "carl"} {
		putRaw(t, f.store, f.docs.Key(name), fmt.Sprintf(same, name))
	}

	listing, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carl", "dave"}, usernamesOf(listing), "ties keep key order")
}

func TestListCommentsSkipsForeignKeysAndBadDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice")
	f.post(t, "alice", "t", "kept")

	entry := `{"comments":[{"id":"x","threadId":"t","text":"hidden","createdAt":"2026-01-01T00:00:00.000Z"}]}`
	putRaw(t, f.store, "thesis/Bad Name/data.json", entry)
	putRaw(t, f.store, "thesis/bob/notes.json", entry)
	putRaw(t, f.store, "thesis/bob/extra/data.json", entry)
	putRaw(t, f.store, "thesis/carol/data.json", "{not json")

	listing, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	require.Len(t, listing.Comments, 1)
	assert.Equal(t, "kept", listing.Comments[0].Text)
}

// vanishingDocs lists one extra user whose document is gone by the time it is read.
type vanishingDocs struct {
	*docstore.Repository
}

func (v vanishingDocs) ListPage(ctx context.Context, cursor string, limit int) (docstore.Page, error) {
	page, err := v.Repository.ListPage(ctx, cursor, limit)
	if err != nil {
		return page, err
	}
	page.Usernames = append([]string{"ghost"}, page.Usernames...)
	return page, nil
}

func TestListCommentsSkipsVanishedDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice")
	f.post(t, "alice", "t", "still here")

	s := New(vanishingDocs{f.docs}, f.auth)
	listing, err := s.ListComments(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, usernamesOf(listing))
}

type failingDocs struct {
	*docstore.Repository
}

func (failingDocs) Load(context.Context, string) (*models.UserDocument, string, error) {
	return nil, "", errors.New("backend unavailable")
}

func TestListCommentsPropagatesReadErrors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	s := New(failingDocs{f.docs}, f.auth)
	_, err := s.ListComments(context.Background(), "t")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.From(err).Kind)
}

func TestListCommentsInvalidThread(t *testing.T) {
	_, err := newFixture(t).service.ListComments(context.Background(), "has space")
	assert.ErrorIs(t, err, apperr.ErrInvalidThread)
}

func TestListCommentsScanCap(t *testing.T) {
	testCases := []struct {
		name      string
		users     int
		truncated bool
	}{
		{name: "below cap", users: 4, truncated: false},
		{name: "exactly cap", users: 5, truncated: false},
		{name: "one over cap", users: 6, truncated: true},
		{name: "well over cap", users: 11, truncated: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ctx := context.Background()
			recorder := &fakeRecorder{}
			// Page size 2 makes the cap fall inside a page and on a page boundary.
			f := newFixture(t, WithScanLimits(5, 2), WithMetrics(recorder))

			var expected []string
			for i := 0; i < testCase.users; i++ {
				name := fmt.Sprintf("user%03d", i)
				f.register(t, name)
				f.post(t, name, "t", name)
				if i < 5 {
					expected = append(expected, name)
				}
			}

			listing, err := f.service.ListComments(ctx, "t")
			require.NoError(t, err)
			assert.Equal(t, testCase.truncated, listing.Truncated)
			assert.ElementsMatch(t, expected, usernamesOf(listing))

			require.Len(t, recorder.scans, 1)
			assert.Equal(t, min(testCase.users, 5), recorder.scans[0])
			assert.Equal(t, testCase.truncated, recorder.truncated[0])
		})
	}
}

func TestListCommentsDefaultScanCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i <= MaxUsersScan; i++ {
		putRaw(t, f.store, f.docs.Key(fmt.Sprintf("user%03d", i)), fmt.Sprintf(
			`{"comments":[{"id":"c%d","threadId":"t","text":"x","createdAt":"2026-01-01T00:00:00.000Z"}]}`, i,
		))
	}

	listing, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	assert.True(t, listing.Truncated)
	require.Len(t, listing.Comments, MaxUsersScan)
	for _, c := range listing.Comments {
		assert.NotEqual(t, "user500", c.Username, "documents beyond the cap are never read")
	}
}

func TestListCommentsUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	recorder := &fakeRecorder{}
	f := newFixture(t, WithThreadCache(cache), WithMetrics(recorder))
	f.register(t, "alice")
	f.post(t, "alice", "t", "one")

	first, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	require.Len(t, first.Comments, 1)

	// Written behind the service's back: only visible once the entry is gone.
	putRaw(t, f.store, f.docs.Key("bob"), `{"comments":[{"id":"b","threadId":"t","text":"two","createdAt":"2027-01-01T00:00:00.000Z"}]}`)

	second, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, second.Comments, 1)
	assert.Equal(t, 1, recorder.hits)

	f.post(t, "alice", "t", "three")

	third, err := f.service.ListComments(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, third.Comments, 3)
	assert.Equal(t, 2, recorder.misses)
}

func TestTokensSurviveOnlyWithTheirSecret(t *testing.T) {
	f := newFixture(t)
	_, token, err := f.service.CreateUser(context.Background(), "alice")
	require.NoError(t, err)

	_, err = auth.New("rotated").Verify(token)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}
