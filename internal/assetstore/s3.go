package assetstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3 writes assets to an S3 bucket under a fixed prefix and returns either
// PublicBaseURL-joined URLs or the bucket's virtual-hosted-style URLs.
type S3 struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewS3 creates an S3-backed store using the default AWS config chain.
func NewS3(ctx context.Context, bucket, prefix, baseURL string) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  bucket,
		prefix:  prefix,
		baseURL: baseURL,
	}, nil
}

// NewS3WithClient creates an S3 store with an injected client.
func NewS3WithClient(client *s3.Client, bucket, prefix, baseURL string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, baseURL: baseURL}
}

// Put implements Store.
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset to S3: %w", err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", objectKey).
		Int("bytes", len(data)).
		Msg("Asset uploaded to S3")

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, objectKey), nil
}
