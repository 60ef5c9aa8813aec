// Package sink delivers compiled PDFs to their destination: a local file or
// an S3 object addressed as s3://bucket/key.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alnah/go-latexcompile/internal/ctxlog"
)

// Sentinel errors for sink operations.
var (
	ErrEmptyDestination = errors.New("sink: empty destination")
	ErrInvalidS3URL     = errors.New("sink: invalid s3 url (want s3://bucket/key)")
	ErrUpload           = errors.New("sink: upload failed")
	ErrWrite            = errors.New("sink: write failed")
)

const (
	s3Scheme        = "s3://"
	pdfContentType  = "application/pdf"
	dirPermissions  = 0o755 // rwxr-xr-x
	filePermissions = 0o644 // rw-r--r--
)

// Sink stores a PDF and reports where it went.
type Sink interface {
	Write(ctx context.Context, pdf []byte) (location string, err error)
}

// Uploader is the slice of an object store client a Sink needs.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
}

// newUploader builds the S3 uploader on first use (swapped in tests).
var newUploader = func(ctx context.Context) (Uploader, error) {
	return NewS3Uploader(ctx)
}

// IsS3 reports whether dest addresses an S3 object.
func IsS3(dest string) bool {
	return strings.HasPrefix(dest, s3Scheme)
}

// ParseS3URL splits s3://bucket/key. The key may contain slashes.
func ParseS3URL(dest string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(dest, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3URL, dest)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3URL, dest)
	}
	return bucket, key, nil
}

// Open returns the sink for dest. S3 credentials are resolved here, not on
// Write, so configuration problems surface before any compilation runs.
func Open(ctx context.Context, dest string) (Sink, error) {
	if dest == "" {
		return nil, ErrEmptyDestination
	}
	if !IsS3(dest) {
		return &FileSink{Path: dest}, nil
	}

	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return nil, err
	}
	up, err := newUploader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return &S3Sink{Bucket: bucket, Key: key, Uploader: up}, nil
}

// ---------------------------------------------------------------------------
// Local files
// ---------------------------------------------------------------------------

// FileSink writes to a local path, creating parent directories. The PDF is
// written to a temporary sibling and renamed, so readers never see a
// truncated file.
type FileSink struct {
	Path string
}

// Compile-time interface implementation check.
var _ Sink = (*FileSink)(nil)

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, pdf []byte) (string, error) {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", ErrWrite, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	ctxlog.FromContext(ctx).Debug("pdf written", "path", s.Path, "bytes", len(pdf))
	return s.Path, nil
}

// ---------------------------------------------------------------------------
// S3
// ---------------------------------------------------------------------------

// S3Sink uploads to a fixed bucket and key.
type S3Sink struct {
	Bucket   string
	Key      string
	Uploader Uploader
}

// Compile-time interface implementation check.
var _ Sink = (*S3Sink)(nil)

// Write implements Sink.
func (s *S3Sink) Write(ctx context.Context, pdf []byte) (string, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload", "bucket", s.Bucket, "key", s.Key)
	logger.Info("uploading pdf", "size", len(pdf), "contentType", pdfContentType)

	if err := s.Uploader.Upload(ctx, s.Bucket, s.Key, bytes.NewReader(pdf), int64(len(pdf)), pdfContentType); err != nil {
		return "", fmt.Errorf("%w: s3://%s/%s: %w", ErrUpload, s.Bucket, s.Key, err)
	}

	logger.Info("upload complete")
	return s3Scheme + s.Bucket + "/" + s.Key, nil
}

// S3Uploader implements Uploader with the AWS SDK. Credentials and region
// come from the default chain (environment, shared config, instance role).
type S3Uploader struct {
	client *s3.Client
}

// Compile-time interface implementation check.
var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader loads the default AWS configuration.
func NewS3Uploader(ctx context.Context) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg)}, nil
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}
