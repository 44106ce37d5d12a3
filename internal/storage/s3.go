/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool   // Required for MinIO
	PublicBaseURL   string // Optional CDN/CloudFront URL
	Prefix          string // Optional key prefix inside the bucket
}

// S3Store implements ObjectStore on S3.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Store builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
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

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// S3-compatible services often reject the newer default checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "storage-s3").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

func (s *S3Store) objectKey(key string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if prefix := strings.Trim(s.cfg.Prefix, "/"); prefix != "" {
		k = prefix + "/" + k
	}
	return k, nil
}

// Put uploads an object.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(k),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", k, err)
	}
	s.logger.Debug().Str("key", k).Int("bytes", len(data)).Msg("object stored")
	return nil
}

// Get downloads an object.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", k, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", k, err)
	}
	return data, nil
}

// Delete removes an object. S3 treats missing keys as success.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(k),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", k, err)
	}
	return nil
}

// URL returns the public URL when a public base URL is configured.
func (s *S3Store) URL(key string) string {
	if s.cfg.PublicBaseURL == "" {
		return ""
	}
	k, err := s.objectKey(key)
	if err != nil {
		return ""
	}
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + k
}
