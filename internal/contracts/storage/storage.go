// Package storage keeps template binaries and issued PDFs in object storage,
// one bucket for each.
package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	dErrors "rentaldocs/pkg/domain-errors"
)

const (
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
)

// Options configures the object store connection.
type Options struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
	TemplatesBucket string
	ContractsBucket string
}

// ObjectStore wraps the MinIO client with the two-bucket layout.
type ObjectStore struct {
	client          *minio.Client
	templatesBucket string
	contractsBucket string
}

func New(opts Options) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeStorage, "connect to object storage", err)
	}
	return &ObjectStore{
		client:          client,
		templatesBucket: opts.TemplatesBucket,
		contractsBucket: opts.ContractsBucket,
	}, nil
}

// EnsureBuckets creates the buckets when absent. Called once at startup.
func (s *ObjectStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.templatesBucket, s.contractsBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeStorage, "check bucket", err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return dErrors.Wrap(dErrors.CodeStorage, "create bucket", err)
		}
	}
	return nil
}

func (s *ObjectStore) UploadTemplate(ctx context.Context, key string, data []byte) error {
	return s.upload(ctx, s.templatesBucket, key, data, ContentTypeDocx)
}

func (s *ObjectStore) UploadContract(ctx context.Context, key string, data []byte) error {
	return s.upload(ctx, s.contractsBucket, key, data, ContentTypePDF)
}

func (s *ObjectStore) upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return dErrors.Wrap(dErrors.CodeStorage, "upload object", err).
			WithDetails(map[string]string{"bucket": bucket, "key": key})
	}
	return nil
}

func (s *ObjectStore) DownloadTemplate(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.templatesBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeStorage, "download template", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeStorage, "download template", err).
			WithDetails(map[string]string{"key": key})
	}
	return data, nil
}

// PresignedContractURL returns a time-limited download URL for an issued PDF.
func (s *ObjectStore) PresignedContractURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presign(ctx, s.contractsBucket, key, ttl)
}

// PresignedTemplateURL returns a time-limited download URL for a template
// binary.
func (s *ObjectStore) PresignedTemplateURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presign(ctx, s.templatesBucket, key, ttl)
}

func (s *ObjectStore) presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeStorage, "sign object url", err).
			WithDetails(map[string]string{"bucket": bucket, "key": key})
	}
	return signed.String(), nil
}
