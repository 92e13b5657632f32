package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
	"github.com/patric-chuzhbe/thesiscomments/internal/auth"
	"github.com/patric-chuzhbe/thesiscomments/internal/docstore"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/memory"
)

func TestCreateUser(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		username string
		err      error
	}{
		{name: "plain", raw: "alice", username: "alice"},
		{name: "normalized", raw: "  Alice_01 ", username: "alice_01"},
		{name: "too short", raw: "ab", err: apperr.ErrInvalidUsername},
		{name: "bad first char", raw: "_alice", err: apperr.ErrInvalidUsername},
		{name: "bad char", raw: "ali ce", err: apperr.ErrInvalidUsername},
		{name: "empty", raw: "", err: apperr.ErrInvalidUsername},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newFixture(t)

			username, token, err := f.service.CreateUser(context.Background(), testCase.raw)
			if testCase.err != nil {
				assert.ErrorIs(t, err, testCase.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.username, username)

			identity, err := f.auth.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, testCase.username, identity.Username)
		})
	}
}

func TestCreateUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.register(t, "alice")
	posted := f.post(t, "alice", "chapter-1", "hello")

	username, token, err := f.service.CreateUser(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	_, err = f.auth.Verify(token)
	require.NoError(t, err)

	doc, _, err := f.docs.Load(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, doc.Comments, 1, "re-registration must not reset the document")
	assert.Equal(t, posted, doc.Comments[0])
}

func TestCreateUserWithoutSecret(t *testing.T) {
	ctx := context.Background()
	docs := docstore.New(memory.New())
	s := New(docs, auth.New(""))

	_, _, err := s.CreateUser(ctx, "alice")
	assert.ErrorIs(t, err, apperr.ErrAuthSecretNotSet)

	exists, err := docs.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	username, exists, err := f.service.UserExists(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.False(t, exists)

	f.register(t, "alice")

	_, exists, err = f.service.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, _, err = f.service.UserExists(ctx, "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidUsername)
}
