package mocks

import (
	"context"
	"io"

	"ledger/application/ports"
	"ledger/domain/entity"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of ports.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	args := m.Called(ctx, bucket, key, reader, metadata)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.ObjectInfo), args.Error(1)
}

// MockBlobStore is a mock implementation of ports.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, data []byte, hint ports.UploadHint) (entity.Locator, error) {
	args := m.Called(ctx, data, hint)
	return args.Get(0).(entity.Locator), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, locator entity.Locator) error {
	args := m.Called(ctx, locator)
	return args.Error(0)
}

// MockQueue is a mock implementation of ports.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *MockQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}
