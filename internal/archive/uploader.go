// Package archive uploads encrypted diary reports to S3-compatible storage.
// When no bucket is configured the NoopUploader is used and reports stay local.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/platewise/internal/config"
)

// ErrNotConfigured is returned when report archiving is not configured.
var ErrNotConfigured = errors.New("report archive not configured")

// DefaultURLExpiry is how long a pre-signed report link stays valid.
const DefaultURLExpiry = 15 * time.Minute

// Uploader stores rendered reports and hands out download links.
type Uploader interface {
	// Upload stores the report body for the given date (YYYY-MM-DD).
	Upload(ctx context.Context, date string, body []byte, contentType string) error

	// PresignedURL returns a time-limited download link for a date's report.
	// Returns ErrNotConfigured when archiving is off.
	PresignedURL(ctx context.Context, date string) (url string, expiry time.Time, err error)
}

// s3Client is the subset of *minio.Client the uploader needs.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, body []byte, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

// minioClientWrapper adapts *minio.Client to s3Client.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, body []byte, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader stores reports in an S3-compatible bucket.
type S3Uploader struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
}

// Upload puts the report under reports/{date}/report.html.
func (u *S3Uploader) Upload(ctx context.Context, date string, body []byte, contentType string) error {
	if err := u.client.PutObject(ctx, u.bucket, ObjectKey(date), body, contentType); err != nil {
		return fmt.Errorf("upload report to S3: %w", err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL for the date's report.
func (u *S3Uploader) PresignedURL(ctx context.Context, date string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, ObjectKey(date), u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	return presigned.String(), time.Now().Add(u.urlExpiry), nil
}

// NoopUploader is used when archiving is not configured.
type NoopUploader struct{}

// Upload does nothing.
func (u *NoopUploader) Upload(ctx context.Context, date string, body []byte, contentType string) error {
	return nil
}

// PresignedURL always returns ErrNotConfigured.
func (u *NoopUploader) PresignedURL(ctx context.Context, date string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader returns a NoopUploader unless both a bucket and a report
// password are configured.
func NewUploader(cfg config.ArchiveConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		urlExpiry: DefaultURLExpiry,
	}, nil
}

// ObjectKey returns the object key for a date's report.
func ObjectKey(date string) string {
	return "reports/" + date + "/report.html"
}

// stripScheme removes an http:// or https:// prefix from endpoint. A plain
// http scheme turns SSL off.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}
