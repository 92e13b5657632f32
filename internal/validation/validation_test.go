package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/apperr"
)

func TestUsername(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "alice", want: "alice"},
		{name: "normalized", raw: "  Alice_01 ", want: "alice_01"},
		{name: "min length", raw: "abc", want: "abc"},
		{name: "max length", raw: strings.Repeat("a", 32), want: strings.Repeat("a", 32)},
		{name: "too short", raw: "ab", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", 33), wantErr: true},
		{name: "leading dash", raw: "-bob", wantErr: true},
		{name: "bad char", raw: "bob.smith", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := Username(testCase.raw)
			if testCase.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidUsername)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestThreadID(t *testing.T) {
	assert.NoError(t, ThreadID("ch1"))
	assert.NoError(t, ThreadID("chapter-2/section_3.1"))
	assert.NoError(t, ThreadID(strings.Repeat("x", MaxThreadIDLength)))

	assert.ErrorIs(t, ThreadID(""), apperr.ErrInvalidThread)
	assert.ErrorIs(t, ThreadID(strings.Repeat("x", MaxThreadIDLength+1)), apperr.ErrInvalidThread)
	assert.ErrorIs(t, ThreadID("has space"), apperr.ErrInvalidThread)
	assert.ErrorIs(t, ThreadID("emoji-😀"), apperr.ErrInvalidThread)
}

func TestCommentText(t *testing.T) {
	text, err := CommentText("  hello \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = CommentText("   ")
	assert.ErrorIs(t, err, apperr.ErrTextRequired)

	_, err = CommentText(strings.Repeat("a", MaxTextLength))
	assert.NoError(t, err)

	_, err = CommentText(strings.Repeat("a", MaxTextLength+1))
	assert.ErrorIs(t, err, apperr.ErrTextTooLong)

	// Multi-byte characters count once each.
	_, err = CommentText(strings.Repeat("ж", MaxTextLength))
	assert.NoError(t, err)
}

func TestCommentID(t *testing.T) {
	assert.NoError(t, CommentID("3f1c"))
	assert.ErrorIs(t, CommentID(""), apperr.ErrCommentIDRequired)
}
