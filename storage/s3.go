package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 stores documents as objects in an S3 compatible bucket. A PUT replaces
// an object only once the upload completes.
type S3 struct {
	client     *s3.Client
	bucketName string
}

// S3Config holds the configuration for S3 storage
type S3Config struct {
	Endpoint        string // S3 endpoint URL (for S3-compatible services)
	Region          string // AWS region
	BucketName      string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
}

// NewS3 creates a new S3 storage with the specified configuration
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsConfig, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and other S3-compatible services
		}
	})

	return &S3{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// Open downloads the object stored under path
func (s *S3) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucketName, path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucketName, path, err)
	}
	return result.Body, nil
}

// Write uploads the content of r as the object stored under path
func (s *S3) Write(ctx context.Context, path string, r io.Reader) error {
	// PutObject needs a seekable body with a known length to sign the payload.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to buffer %s: %w", path, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucketName, path, err)
	}
	return nil
}
