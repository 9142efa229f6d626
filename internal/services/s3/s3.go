// Package s3service reads input tables from and writes match reports to S3.
package s3service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	appConfig "blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/utils"
)

// ErrInvalidURI is returned for locations that are not s3://bucket/key.
var ErrInvalidURI = errors.New("invalid S3 URI")

const uriScheme = "s3://"

// Service handles S3 operations
type Service struct {
	client        *s3.Client
	defaultBucket string
}

// NewService creates a new S3 service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:        s3.NewFromConfig(cfg),
		defaultBucket: appCfg.S3Bucket,
	}, nil
}

// IsURI reports whether a location points at S3.
func IsURI(location string) bool {
	return strings.HasPrefix(location, uriScheme)
}

// ParseURI splits s3://bucket/key. A URI without a bucket (s3:///key)
// uses defaultBucket.
func ParseURI(location, defaultBucket string) (bucket, key string, err error) {
	if !IsURI(location) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, location)
	}

	rest := strings.TrimPrefix(location, uriScheme)
	bucket, key, found := strings.Cut(rest, "/")
	if bucket == "" {
		bucket = defaultBucket
	}
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, location)
	}

	return bucket, key, nil
}

// Download fetches the object at an s3:// location.
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseURI(location, s.defaultBucket)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		utils.GetLogger().Error("Failed to download file from S3",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	utils.GetLogger().Info("Downloaded file from S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)

	return data, nil
}

// Upload writes data to an s3:// location.
func (s *Service) Upload(ctx context.Context, location string, data []byte, contentType string) error {
	bucket, key, err := ParseURI(location, s.defaultBucket)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		utils.GetLogger().Error("Failed to upload file to S3",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	utils.GetLogger().Info("Uploaded file to S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)

	return nil
}
