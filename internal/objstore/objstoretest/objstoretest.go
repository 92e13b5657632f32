// Package objstoretest is a conformance suite every objstore backend runs in its tests.
package objstoretest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
)

// Run exercises store. The store must be empty.
func Run(t *testing.T, store objstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Head(ctx, "conformance/missing")
		assert.ErrorIs(t, err, objstore.ErrNotFound)

		_, _, err = store.Get(ctx, "conformance/missing")
		assert.ErrorIs(t, err, objstore.ErrNotFound)
	})

	t.Run("put get head", func(t *testing.T) {
		written, err := store.Put(ctx, "conformance/a", []byte(`{"n":1}`), objstore.PutOptions{ContentType: objstore.ContentTypeJSON})
		require.NoError(t, err)
		assert.NotEmpty(t, written.ETag)

		body, got, err := store.Get(ctx, "conformance/a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(body))
		assert.Equal(t, written.ETag, got.ETag)

		head, err := store.Head(ctx, "conformance/a")
		require.NoError(t, err)
		assert.Equal(t, written.ETag, head.ETag)
		assert.EqualValues(t, len(`{"n":1}`), head.Size)
	})

	t.Run("create only", func(t *testing.T) {
		_, err := store.Put(ctx, "conformance/b", []byte(`{"n":1}`), objstore.PutOptions{IfNoneMatch: true})
		require.NoError(t, err)

		_, err = store.Put(ctx, "conformance/b", []byte(`{"n":2}`), objstore.PutOptions{IfNoneMatch: true})
		assert.ErrorIs(t, err, objstore.ErrPreconditionFailed)

		body, _, err := store.Get(ctx, "conformance/b")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(body))
	})

	t.Run("compare and swap", func(t *testing.T) {
		first, err := store.Put(ctx, "conformance/c", []byte(`{"n":1}`), objstore.PutOptions{})
		require.NoError(t, err)

		second, err := store.Put(ctx, "conformance/c", []byte(`{"n":2}`), objstore.PutOptions{IfMatch: first.ETag})
		require.NoError(t, err)
		assert.NotEqual(t, first.ETag, second.ETag)

		_, err = store.Put(ctx, "conformance/c", []byte(`{"n":3}`), objstore.PutOptions{IfMatch: first.ETag})
		assert.ErrorIs(t, err, objstore.ErrPreconditionFailed)

		_, err = store.Put(ctx, "conformance/never-written", []byte(`{}`), objstore.PutOptions{IfMatch: first.ETag})
		assert.ErrorIs(t, err, objstore.ErrPreconditionFailed)

		body, _, err := store.Get(ctx, "conformance/c")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(body))
	})

	t.Run("paginated listing", func(t *testing.T) {
		for i := 0; i < 7; i++ {
			_, err := store.Put(ctx, fmt.Sprintf("listing/%02d", i), []byte(`{}`), objstore.PutOptions{})
			require.NoError(t, err)
		}
		_, err := store.Put(ctx, "other/00", []byte(`{}`), objstore.PutOptions{})
		require.NoError(t, err)

		var keys []string
		cursor := ""
		pages := 0
		for {
			page, err := store.List(ctx, objstore.ListOptions{Prefix: "listing/", Cursor: cursor, Limit: 3})
			require.NoError(t, err)
			pages++
			assert.LessOrEqual(t, len(page.Objects), 3)
			for _, obj := range page.Objects {
				keys = append(keys, obj.Key)
			}
			if !page.Truncated {
				break
			}
			cursor = page.Cursor
			require.Less(t, pages, 10, "listing does not terminate")
		}

		assert.Equal(t, []string{
			"listing/00", "listing/01", "listing/02", "listing/03",
			"listing/04", "listing/05", "listing/06",
		}, keys)
		assert.Equal(t, 3, pages)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
