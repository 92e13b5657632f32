// Package s3store is an objstore.Store backed by any S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO) through minio-go.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/patric-chuzhbe/thesiscomments/internal/logger"
	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
)

// Config holds the connection settings of the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store stores every object in one bucket.
type S3Store struct {
	mc     *minio.Client
	bucket string
}

// New connects to the endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	store := &S3Store{mc: mc, bucket: cfg.Bucket}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	logger.Log.Infow("created bucket", "bucket", s.bucket)
	return nil
}

func (s *S3Store) Head(ctx context.Context, key string) (objstore.ObjectInfo, error) {
	stat, err := s.mc.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return objstore.ObjectInfo{}, translate(key, err)
	}
	return info(stat), nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, objstore.ObjectInfo, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, objstore.ObjectInfo{}, translate(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		return nil, objstore.ObjectInfo{}, translate(key, err)
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, objstore.ObjectInfo{}, fmt.Errorf("read %s: %w", key, err)
	}

	return body, info(stat), nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, opts objstore.PutOptions) (objstore.ObjectInfo, error) {
	putOpts := minio.PutObjectOptions{
		ContentType: opts.ContentType,
	}
	if putOpts.ContentType == "" {
		putOpts.ContentType = objstore.ContentTypeJSON
	}
	if opts.IfMatch != "" {
		putOpts.SetMatchETag(opts.IfMatch)
	}
	if opts.IfNoneMatch {
		putOpts.SetMatchETagExcept("*")
	}

	uploaded, err := s.mc.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), putOpts)
	if err != nil {
		err = translate(key, err)
		if opts.IfMatch != "" && errors.Is(err, objstore.ErrNotFound) {
			return objstore.ObjectInfo{}, objstore.ErrPreconditionFailed
		}
		return objstore.ObjectInfo{}, err
	}

	return objstore.ObjectInfo{
		Key:          key,
		ETag:         uploaded.ETag,
		Size:         uploaded.Size,
		LastModified: uploaded.LastModified,
	}, nil
}

// List reads one page. minio-go streams the whole listing, so the stream is
// cancelled once one object past the limit proves that more keys follow.
func (s *S3Store) List(ctx context.Context, opts objstore.ListOptions) (objstore.ListPage, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.mc.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		StartAfter: opts.Cursor,
		MaxKeys:    opts.Limit,
		Recursive:  true,
	})

	page := objstore.ListPage{}
	for obj := range objects {
		if obj.Err != nil {
			return objstore.ListPage{}, fmt.Errorf("list %s: %w", opts.Prefix, obj.Err)
		}
		if opts.Limit > 0 && len(page.Objects) == opts.Limit {
			page.Truncated = true
			page.Cursor = page.Objects[len(page.Objects)-1].Key
			break
		}
		page.Objects = append(page.Objects, info(obj))
	}

	return page, nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.mc.BucketExists(ctx, s.bucket)
	return err
}

func (s *S3Store) Close() error {
	return nil
}

func info(obj minio.ObjectInfo) objstore.ObjectInfo {
	return objstore.ObjectInfo{
		Key:          obj.Key,
		ETag:         obj.ETag,
		Size:         obj.Size,
		LastModified: obj.LastModified,
	}
}

func translate(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return objstore.ErrNotFound
	case "PreconditionFailed", "ConditionalRequestConflict":
		return objstore.ErrPreconditionFailed
	}
	return fmt.Errorf("object %s: %w", key, err)
}
