package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"canvas-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// BlobStore implements ports.BlobStore on a single S3 bucket. Keys map to
// object keys directly.
type BlobStore struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewBlobStore creates a new S3-backed blob store
func NewBlobStore(client *s3.Client, bucket string, logger *zap.Logger) ports.BlobStore {
	return &BlobStore{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Get reads the whole object. A missing key maps to ports.ErrBlobNotFound
// so callers can distinguish absence from I/O failure.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ports.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Put writes the object, overwriting any previous version
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	s.logger.Debug("Saved blob",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
