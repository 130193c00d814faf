package cleanup

import (
	"context"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Archiver uploads episode artifacts to an S3-compatible bucket.
type S3Archiver struct {
	client   *minio.Client
	bucket   string
	location string
	prefix   string
}

// NewS3Archiver connects to an S3-compatible endpoint.
func NewS3Archiver(endpoint, accessKey, secretKey, bucket, location, prefix string, secure bool) (*S3Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup: connect s3 %s: %w", endpoint, err)
	}
	return &S3Archiver{client: client, bucket: bucket, location: location, prefix: prefix}, nil
}

// Archive uploads a local file under the configured prefix, creating
// the bucket on first use.
func (s *S3Archiver) Archive(ctx context.Context, objectName, filePath string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.location}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	key := objectName
	if s.prefix != "" {
		key = strings.TrimRight(s.prefix, "/") + "/" + objectName
	}

	info, err := s.client.FPutObject(ctx, s.bucket, key, filePath, minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	log.Printf("[INFO] cleanup: archived %s (%d bytes) to s3://%s", key, info.Size, s.bucket)
	return nil
}
