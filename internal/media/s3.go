package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/humrah/backend/internal/config"
)

// Store is the object-storage collaborator holding raw verification videos.
// Objects are private; references are bucket-relative keys.
type Store interface {
	Put(ctx context.Context, sessionID uuid.UUID, body io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, mediaRef string) ([]byte, error)
	Delete(ctx context.Context, mediaRef string) error
}

// S3Store is a thin wrapper around the AWS SDK v2 S3 client; it also works
// against S3-compatible endpoints with path-style addressing.
type S3Store struct {
	api    *s3.Client
	bucket string

	uploadTimeout   time.Duration
	downloadTimeout time.Duration
}

func NewS3Store(cfg config.Storage) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("S3_ENDPOINT is required")
	}

	scheme := "https"
	if cfg.DisableTLS {
		scheme = "http"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &S3Store{
		api:             client,
		bucket:          cfg.Bucket,
		uploadTimeout:   cfg.UploadTimeout,
		downloadTimeout: cfg.DownloadTimeout,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, sessionID uuid.UUID, body io.Reader, size int64, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	key := fmt.Sprintf("verification/%s.mp4", sessionID)

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: &size,
		ContentType:   &contentType,
		ACL:           s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", errors.Wrapf(err, "put %s", key)
	}

	return key, nil
}

func (s *S3Store) Get(ctx context.Context, mediaRef string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &mediaRef,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", mediaRef)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, errors.Wrapf(err, "read %s", mediaRef)
	}

	return buf.Bytes(), nil
}

// Delete is idempotent: S3 DeleteObject succeeds for absent keys.
func (s *S3Store) Delete(ctx context.Context, mediaRef string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &mediaRef,
	})
	if err != nil {
		return errors.Wrapf(err, "delete %s", mediaRef)
	}
	return nil
}
