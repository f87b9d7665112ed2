// Package storage wraps the S3 compatible object store that holds alert media.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"rescue-alert-service/internal/infrastructure/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore is the blob storage boundary: store bytes under a key and hand out view URLs.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3Store stores media objects in a single bucket.
type S3Store struct {
	Client  *s3.Client
	Presign *s3.PresignClient
	Bucket  string
}

// NewS3Store loads AWS configuration, honouring a custom endpoint (e.g. http://localstack:4566).
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	awsConfig, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		Client:  client,
		Presign: s3.NewPresignClient(client),
		Bucket:  cfg.S3Bucket,
	}, nil
}

// Put uploads one object.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	return err
}

// PresignGet returns a time limited GET URL for the object.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// BuildMediaKey constructs the object key for a media item.
// The original file extension is kept so viewers can tell videos from images.
func BuildMediaKey(uploaderID, mediaID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("media/%s/%s%s", uploaderID, mediaID, ext)
}

// ParseMediaKey extracts uploader and media id from a key produced by BuildMediaKey.
func ParseMediaKey(key string) (uploaderID, mediaID string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "media" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], strings.TrimSuffix(parts[2], path.Ext(parts[2])), true
}
