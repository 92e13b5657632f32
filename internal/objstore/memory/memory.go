// Package memory is an in-process objstore.Store. It backs tests and
// single-instance development runs where nothing needs to survive a restart.
package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
)

type object struct {
	body         []byte
	etag         string
	lastModified time.Time
}

// MemoryStorage keeps objects in a map guarded by a mutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates an empty store.
func New() *MemoryStorage {
	return &MemoryStorage{
		objects: map[string]object{},
	}
}

func (s *MemoryStorage) Head(ctx context.Context, key string) (objstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return objstore.ObjectInfo{}, objstore.ErrNotFound
	}
	return info(key, obj), nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, objstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, objstore.ObjectInfo{}, objstore.ErrNotFound
	}
	body := make([]byte, len(obj.body))
	copy(body, obj.body)
	return body, info(key, obj), nil
}

func (s *MemoryStorage) Put(ctx context.Context, key string, body []byte, opts objstore.PutOptions) (objstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.objects[key]
	if opts.IfNoneMatch && exists {
		return objstore.ObjectInfo{}, objstore.ErrPreconditionFailed
	}
	if opts.IfMatch != "" && (!exists || existing.etag != opts.IfMatch) {
		return objstore.ObjectInfo{}, objstore.ErrPreconditionFailed
	}

	stored := make([]byte, len(body))
	copy(stored, body)
	sum := md5.Sum(stored)
	obj := object{
		body:         stored,
		etag:         hex.EncodeToString(sum[:]),
		lastModified: time.Now().UTC(),
	}
	s.objects[key] = obj

	return info(key, obj), nil
}

func (s *MemoryStorage) List(ctx context.Context, opts objstore.ListOptions) (objstore.ListPage, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, opts.Prefix) && key > opts.Cursor {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)

	page := objstore.ListPage{}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
		page.Truncated = true
		page.Cursor = keys[len(keys)-1]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range keys {
		obj, ok := s.objects[key]
		if !ok {
			continue
		}
		page.Objects = append(page.Objects, info(key, obj))
	}

	return page, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func info(key string, obj object) objstore.ObjectInfo {
	return objstore.ObjectInfo{
		Key:          key,
		ETag:         obj.etag,
		Size:         int64(len(obj.body)),
		LastModified: obj.lastModified,
	}
}
