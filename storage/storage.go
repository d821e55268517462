// Package storage moves spreadsheet documents between codecs and the place
// they live: a local directory, an in-memory filesystem or an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ModeLocal  = "local"
	ModeS3     = "s3"
	ModeMemory = "memory"
)

// Storage reads and writes whole documents by path.
//
// Open returns an error wrapping fs.ErrNotExist when nothing is stored at
// path. Write replaces the previous content only once the new content is
// complete.
type Storage interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Write(ctx context.Context, path string, r io.Reader) error
}

// FromEnv creates a storage based on environment variables
func FromEnv(ctx context.Context) (Storage, error) {
	mode := strings.ToLower(getEnvOrDefault("SHEETDB_STORAGE_MODE", ModeLocal))

	switch mode {
	case ModeS3:
		config := S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          getEnvOrDefault("S3_REGION", "us-east-1"),
			BucketName:      os.Getenv("S3_BUCKET_NAME"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		}
		if config.BucketName == "" || config.AccessKeyID == "" || config.SecretAccessKey == "" {
			return nil, fmt.Errorf("missing required S3 configuration: S3_BUCKET_NAME, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY")
		}
		return NewS3(ctx, config)
	case ModeMemory:
		return NewMemory(), nil
	case ModeLocal:
		return NewLocal(getEnvOrDefault("SHEETDB_STORAGE_PATH", "")), nil
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s (supported: local, s3, memory)", mode)
	}
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
