// Package mockstorage provides a testify-based mock implementation
// of objstore.Store. It is used for unit testing the document repository
// and the services on paths a real backend cannot easily produce, such as
// lost conditional writes and listing failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
)

// StorageMock is a testify mock of objstore.Store.
type StorageMock struct {
	mock.Mock

	// OnPut is an optional function field that, when set, replaces the
	// testify handler for Put. Tests use it to interleave a competing write
	// between a read and the conditional write that follows it.
	OnPut func(ctx context.Context, key string, body []byte, opts objstore.PutOptions) (objstore.ObjectInfo, error)
}

// Head mocks the presence probe.
func (m *StorageMock) Head(ctx context.Context, key string) (objstore.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(objstore.ObjectInfo), args.Error(1)
}

// Get mocks reading a whole object.
func (m *StorageMock) Get(ctx context.Context, key string) ([]byte, objstore.ObjectInfo, error) {
	args := m.Called(ctx, key)
	body, _ := args.Get(0).([]byte)
	return body, args.Get(1).(objstore.ObjectInfo), args.Error(2)
}

// Put mocks writing a whole object.
//
// If OnPut is non-nil, it is called instead of the testify handler.
func (m *StorageMock) Put(ctx context.Context, key string, body []byte, opts objstore.PutOptions) (objstore.ObjectInfo, error) {
	if m.OnPut != nil {
		return m.OnPut(ctx, key, body, opts)
	}
	args := m.Called(ctx, key, body, opts)
	return args.Get(0).(objstore.ObjectInfo), args.Error(1)
}

// List mocks one page of a prefix listing.
func (m *StorageMock) List(ctx context.Context, opts objstore.ListOptions) (objstore.ListPage, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(objstore.ListPage), args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the backend.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
