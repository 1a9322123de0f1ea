// Package minio serves s3:// fragments through the MinIO client, for
// S3-compatible stores that are easier to reach with it than with the AWS SDK.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/backend/s3"
	"github.com/d70-t/preffs/internal/sizing"
)

// Config holds connection settings for NewFromConfig.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Backend reads byte ranges of objects addressed as s3://bucket/key.
type Backend struct {
	client *minio.Client
}

// New creates a backend using client.
func New(client *minio.Client) *Backend {
	return &Backend{client: client}
}

// NewFromConfig creates a MinIO client from cfg and returns a backend using it.
func NewFromConfig(cfg Config) (*Backend, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio: endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return New(client), nil
}

// Factory returns a backend.Factory that builds the client on first use.
func Factory(cfg Config) backend.Factory {
	return func(context.Context, string) (backend.Backend, error) {
		return NewFromConfig(cfg)
	}
}

// ReadRange implements backend.Backend.
func (b *Backend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	bucket, key, err := s3.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d,%d)", uri, start, end)
	}
	n, err := sizing.Int(end - start)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	off, err := sizing.Int64(start)
	if err != nil {
		return nil, err
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, off+int64(n)-1); err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, mapError(uri, err)
	}
	defer obj.Close()

	buf := make([]byte, n)
	if _, err := io.ReadFull(obj, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, mapError(uri, err)
	}
	return buf, nil
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (b *Backend) SupportsConcurrentFetch() bool {
	return true
}

// mapError translates missing-object responses to fs.ErrNotExist.
func mapError(uri string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("get %s: %w", uri, fs.ErrNotExist)
	case "InvalidRange":
		return fmt.Errorf("get %s: %w: %w", uri, io.ErrUnexpectedEOF, err)
	}
	return fmt.Errorf("get %s: %w", uri, err)
}

var (
	_ backend.Backend           = (*Backend)(nil)
	_ backend.ConcurrentFetcher = (*Backend)(nil)
)
