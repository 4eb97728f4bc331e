package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the storage needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3 compatible backend.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL replaces the endpoint in returned URLs, e.g. a CDN domain.
	PublicBaseURL string
	UsePathStyle  bool
}

// S3Storage uploads objects with PutObject.
type S3Storage struct {
	client    PutObjectAPI
	endpoint  string
	region    string
	publicURL string
	pathStyle bool
}

// NewS3Storage builds a client from static credentials.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, fmt.Errorf("blob: incomplete s3 config: access_key_id/secret_access_key are required")
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	// Custom endpoints (minio, R2) rarely support virtual hosted buckets.
	pathStyle := cfg.UsePathStyle || endpoint != ""

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewS3StorageWithClient(client, cfg.Endpoint, region, cfg.PublicBaseURL, pathStyle), nil
}

// NewS3StorageWithClient wraps an existing client.
func NewS3StorageWithClient(client PutObjectAPI, endpoint, region, publicBaseURL string, pathStyle bool) *S3Storage {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return &S3Storage{
		client:    client,
		endpoint:  endpoint,
		region:    region,
		publicURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		pathStyle: pathStyle,
	}
}

func (s *S3Storage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", fmt.Errorf("blob: s3 bucket is required")
	}
	key, err := normalizeKey(path)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("blob: s3 put %s: %w", key, err)
	}
	return s.objectURL(bucket, key), nil
}

func (s *S3Storage) objectURL(bucket, key string) string {
	if s.publicURL != "" {
		return publicURL(s.publicURL, key)
	}
	if s.endpoint != "" {
		if s.pathStyle {
			return publicURL(s.endpoint, bucket, key)
		}
		scheme, host, _ := strings.Cut(s.endpoint, "://")
		return publicURL(scheme+"://"+bucket+"."+host, key)
	}
	return publicURL(fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, s.region), key)
}
