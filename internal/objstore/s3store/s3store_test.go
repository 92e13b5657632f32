package s3store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/thesiscomments/internal/objstore/objstoretest"
)

// TestConformance runs against a real S3-compatible endpoint, e.g. a local MinIO:
//
//	S3_TEST_ENDPOINT=localhost:9000 S3_TEST_ACCESS_KEY=minioadmin S3_TEST_SECRET_KEY=minioadmin go test ./...
func TestConformance(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := New(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("S3_TEST_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_TEST_SECRET_KEY"),
		Bucket:    fmt.Sprintf("conformance-%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	defer store.Close()

	objstoretest.Run(t, store)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000"})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.Error(t, err)
}
