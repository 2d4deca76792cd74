// Package blob stores oversize templates and policies in Amazon S3.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nholik/stackpilot/internal/artifact"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = 60 * time.Second
	fingerprintChars = 12
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ s3API = (*s3.Client)(nil)

var _ artifact.BlobStore = (*S3Store)(nil)

// S3Store implements artifact.BlobStore on a single bucket.
type S3Store struct {
	api     s3API
	bucket  string
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewS3Store builds a store writing to bucket under prefix.
func NewS3Store(cfg aws.Config, bucket, prefix string, logger zerolog.Logger) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("artifact bucket is required")
	}
	return &S3Store{
		api:     s3.NewFromConfig(cfg),
		bucket:  bucket,
		prefix:  normalizePrefix(prefix),
		timeout: defaultTimeout,
		logger:  logger,
	}, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Key returns the object key used for a document. Identical bodies map to
// identical keys so re-uploads are idempotent.
func (s *S3Store) Key(stackName, body, originalName string, kind artifact.Kind) (string, error) {
	fingerprint, err := Fingerprint([]byte(body))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s/%s/%s-%s.%s", s.prefix, stackName, kind, originalName, fingerprint[:fingerprintChars], extension(body)), nil
}

func extension(body string) string {
	if strings.HasPrefix(strings.TrimSpace(body), "{") {
		return "json"
	}
	return "yaml"
}

func contentType(ext string) string {
	if ext == "json" {
		return "application/json"
	}
	return "application/x-yaml"
}

// Upload implements artifact.BlobStore.
func (s *S3Store) Upload(ctx context.Context, stackName, body, originalName string, kind artifact.Kind) (string, error) {
	key, err := s.Key(stackName, body, originalName, kind)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String(contentType(extension(body))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	s.logger.Info().
		Str("stack", stackName).
		Str("kind", string(kind)).
		Int("bytes", len(body)).
		Str("url", url).
		Msg("artifact uploaded")
	return url, nil
}

// Fetch implements artifact.BlobStore.
func (s *S3Store) Fetch(ctx context.Context, bucket, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return string(data), nil
}
