package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectAPI defines the subset of the MinIO client used by the uploader.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Options configures the S3-compatible endpoint.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewClient connects to an S3-compatible endpoint with static credentials.
func NewClient(opts Options) (ObjectAPI, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("upload endpoint is not set")
	}
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return cli, nil
}

// Uploader stores reports under <prefix>/<run-id>.json in one bucket.
type Uploader struct {
	api    ObjectAPI
	bucket string
	region string
	prefix string
}

// NewUploader creates an Uploader. Leading and trailing slashes are stripped
// from prefix.
func NewUploader(api ObjectAPI, bucket, region, prefix string) *Uploader {
	return &Uploader{
		api:    api,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the object name for a run.
func (u *Uploader) ObjectKey(runID string) string {
	if u.prefix == "" {
		return runID + ".json"
	}
	return path.Join(u.prefix, runID+".json")
}

// Upload writes body as the report for runID, creating the bucket when it
// does not exist. It returns the object location as bucket/key.
func (u *Uploader) Upload(ctx context.Context, runID string, body []byte) (string, error) {
	if u.bucket == "" {
		return "", errors.New("upload bucket is not set")
	}
	if runID == "" {
		return "", errors.New("run id is empty")
	}

	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := u.ObjectKey(runID)
	info, err := u.api.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", u.bucket, key, err)
	}

	slog.Debug("Uploaded report", "bucket", u.bucket, "key", key, "size", info.Size)
	return u.bucket + "/" + key, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	exists, err := u.api.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	slog.Info("Creating bucket", "bucket", u.bucket, "region", u.region)
	if err := u.api.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	return nil
}
