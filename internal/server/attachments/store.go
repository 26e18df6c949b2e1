// Package attachments stores entry images in S3-compatible object storage.
package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/server/metrics"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/google/uuid"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base clients fetch objects from. When empty it is
	// derived from Endpoint and Bucket.
	PublicURL    string
	MaxDimension int
}

type S3Store struct {
	client    S3API
	bucket    string
	publicURL string
	maxDim    int
	metrics   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// NewS3Store builds an S3 client from cfg. A custom endpoint (MinIO and
// similar) switches the client to path-style addressing.
func NewS3Store(ctx context.Context, cfg Config, m *metrics.Metrics) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg, m), nil
}

func NewS3StoreWithClient(client S3API, cfg Config, m *metrics.Metrics) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
		maxDim:    cfg.MaxDimension,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func publicBase(cfg Config) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Store normalizes data and uploads it under a fresh date-partitioned key.
// The key is the deletion handle.
func (s *S3Store) Store(ctx context.Context, data []byte) (*models.Attachment, error) {
	img, err := Normalize(data, s.maxDim)
	if err != nil {
		return nil, err
	}

	key := path.Join("entries", s.now().UTC().Format("2006/01/02"), s.newID()+"."+img.Ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	s.metrics.AttachmentOperation("put", err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to s3: %w", err)
	}

	return &models.Attachment{URL: s.publicURL + "/" + key, Handle: key}, nil
}

// Delete removes the object behind handle. A missing object is reported as
// common.ErrorNotFound.
func (s *S3Store) Delete(ctx context.Context, handle string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		if isNotFound(err) {
			s.metrics.AttachmentOperation("delete", nil)
			return common.ErrorNotFound
		}
		s.metrics.AttachmentOperation("delete", err)
		return fmt.Errorf("failed to check object: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	s.metrics.AttachmentOperation("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
