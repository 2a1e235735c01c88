package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/imaging"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage"
)

var tracer = otel.Tracer("github.com/AdrianMsc/msc-component-status-ws/pkg/storage/images")

const (
	backend = "s3"

	// KeyPrefix is the folder component images are stored under
	KeyPrefix = "components/"
)

// ErrInvalidImageURL is returned when a stored image URL does not point
// into the configured bucket
var ErrInvalidImageURL = errors.New("invalid image url")

var (
	whitespace   = regexp.MustCompile(`\s+`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_-]`)
)

// ObjectAPI is the subset of the S3 client used by the store
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store keeps component images in an S3 bucket and addresses them by
// public URL
type S3Store struct {
	client    ObjectAPI
	bucket    string
	region    string
	endpoint  string
	publicURL string
	pathStyle bool
	metrics   *observability.Metrics
	logger    *observability.Logger
}

var _ catalog.ImageStore = (*S3Store)(nil)

// NewS3Store creates an S3 client from cfg. When cfg.S3CreateBucket is set
// the bucket is created if it does not exist.
func NewS3Store(ctx context.Context, cfg storage.Config, metrics *observability.Metrics, logger *observability.Logger) (*S3Store, error) {
	var awsConfig aws.Config
	var err error

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			)),
		)
	} else {
		// default credential chain (IAM roles, env vars, etc.)
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.S3Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		if cfg.S3UsePathStyle {
			o.UsePathStyle = true
		}
	})

	if cfg.S3CreateBucket {
		if err := createBucketIfNotExists(ctx, client, cfg.S3Bucket); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
		}
	}

	return NewS3StoreWithClient(client, cfg, metrics, logger), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client ObjectAPI, cfg storage.Config, metrics *observability.Metrics, logger *observability.Logger) *S3Store {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.S3Bucket,
		region:    cfg.S3Region,
		endpoint:  strings.TrimRight(cfg.S3Endpoint, "/"),
		publicURL: strings.TrimRight(cfg.S3PublicURL, "/"),
		pathStyle: cfg.S3UsePathStyle,
		metrics:   metrics,
		logger:    logger.WithField("component", "images"),
	}
}

// Upload stores img under a fresh key derived from baseName and returns
// its public URL
func (s *S3Store) Upload(ctx context.Context, baseName string, img *imaging.Encoded) (string, error) {
	key := ObjectKey(baseName, img.Extension)
	if err := s.put(ctx, "Upload", key, img); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

// Overwrite replaces the object addressed by an existing public URL
func (s *S3Store) Overwrite(ctx context.Context, rawURL string, img *imaging.Encoded) error {
	key, err := s.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	return s.put(ctx, "Overwrite", key, img)
}

// Delete removes the object addressed by a public URL
func (s *S3Store) Delete(ctx context.Context, rawURL string) (err error) {
	key, err := s.KeyFromURL(rawURL)
	if err != nil {
		return err
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "S3.DeleteObject",
		trace.WithAttributes(
			attribute.String("s3.operation", "DeleteObject"),
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete object")
		}
		span.End()
		s.metrics.RecordStorageOperation("Delete", backend, start, err)
	}()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.WithField("key", key).Debug("image deleted")
	return nil
}

func (s *S3Store) put(ctx context.Context, operation, key string, img *imaging.Encoded) (err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "S3.PutObject",
		trace.WithAttributes(
			attribute.String("s3.operation", operation),
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
			attribute.String("content.type", img.ContentType),
			attribute.Int("content.size", len(img.Data)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to upload to s3")
		} else {
			span.SetStatus(codes.Ok, "object uploaded successfully")
		}
		span.End()
		s.metrics.RecordStorageOperation(operation, backend, start, err)
		s.metrics.RecordImageWrite(strings.ToLower(operation), len(img.Data), err)
	}()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(img.Data),
	}).Debug("image stored")
	return nil
}

// HealthCheck verifies S3 connectivity
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// PublicURL returns the URL clients use to fetch key
func (s *S3Store) PublicURL(key string) string {
	switch {
	case s.publicURL != "":
		return s.publicURL + "/" + key
	case s.endpoint != "":
		return s.endpoint + "/" + s.bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

// KeyFromURL recovers the object key from a URL produced by PublicURL.
// Virtual-hosted URLs carry the key as the whole path; path-style URLs
// start with the bucket name.
func (s *S3Store) KeyFromURL(rawURL string) (string, error) {
	if s.publicURL != "" && strings.HasPrefix(rawURL, s.publicURL+"/") {
		return strings.TrimPrefix(rawURL, s.publicURL+"/"), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageURL, rawURL)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if s.endpoint != "" || s.pathStyle || !strings.HasPrefix(u.Host, s.bucket+".") {
		key = strings.TrimPrefix(key, s.bucket+"/")
	}
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageURL, rawURL)
	}
	return key, nil
}

// ObjectKey builds components/msc-<name>-<shortid>.<ext>
func ObjectKey(baseName, ext string) string {
	name := SanitizeName(baseName)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%smsc-%s-%s.%s", KeyPrefix, name, shortID(), ext)
}

// SanitizeName lowercases name, turns whitespace runs into dashes and drops
// anything outside [a-z0-9_-]
func SanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespace.ReplaceAllString(name, "-")
	return invalidChars.ReplaceAllString(name, "")
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func createBucketIfNotExists(ctx context.Context, client *s3.Client, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil && !isBucketAlreadyExistsError(err) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func isBucketAlreadyExistsError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "BucketAlreadyExists") || strings.Contains(msg, "BucketAlreadyOwnedByYou")
}
