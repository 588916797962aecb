// Package s3store publishes objects to Amazon S3 or any S3-compatible
// endpoint using aws-sdk-go-v2.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"hlsingest/internal/objectstore"
)

// API is the subset of the S3 client the store relies on.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config describes how to reach the bucket.
type Config struct {
	Region string
	// Endpoint targets an S3-compatible service (MinIO, R2, ...). Path-style
	// addressing is used when set.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Store implements objectstore.Store on S3.
type Store struct {
	api API
}

var _ objectstore.Store = (*Store)(nil)

// New builds a Store. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{api: client}, nil
}

// NewWithAPI wraps an existing client (primarily for tests).
func NewWithAPI(api API) *Store {
	return &Store{api: api}
}

// Put uploads one object, granting public-read when requested.
func (s *Store) Put(ctx context.Context, in objectstore.PutInput) error {
	if s == nil || s.api == nil {
		return errors.New("s3 store is not configured")
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
		Body:   in.Body,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if in.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", in.Bucket, in.Key, err)
	}
	return nil
}

// Health verifies the bucket exists and the credentials can reach it.
func (s *Store) Health(ctx context.Context, bucket string) error {
	if s == nil || s.api == nil {
		return errors.New("s3 store is not configured")
	}
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	return nil
}
