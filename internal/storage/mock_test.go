package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// mockObjectClient implements ObjectAPI for testing.
type mockObjectClient struct {
	buckets   map[string]bool
	objects   map[string][]byte
	types     map[string]string
	made      []minio.MakeBucketOptions
	existsErr error
	makeErr   error
	putErr    error
}

func newMockClient() *mockObjectClient {
	return &mockObjectClient{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *mockObjectClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.buckets[bucket], nil
}

func (m *mockObjectClient) MakeBucket(_ context.Context, bucket string, opts minio.MakeBucketOptions) error {
	if m.makeErr != nil {
		return m.makeErr
	}
	m.made = append(m.made, opts)
	m.buckets[bucket] = true
	return nil
}

func (m *mockObjectClient) PutObject(_ context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putErr != nil {
		return minio.UploadInfo{}, m.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	key := bucket + "/" + object
	m.objects[key] = data
	m.types[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}
