package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client fetches source documents and stores extraction results.
type S3Client struct {
	client       *s3.Client
	uploader     *manager.Uploader
	bucket       string
	resultPrefix string
}

// NewS3Client builds a client against the configured bucket using the default
// AWS credential chain.
func NewS3Client(ctx context.Context, bucket, region, resultPrefix string) (*S3Client, error) {
	var optFns []func(*awscfg.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awscfg.WithRegion(region))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:       cli,
		uploader:     manager.NewUploader(cli),
		bucket:       bucket,
		resultPrefix: resultPrefix,
	}, nil
}

// Bucket returns the configured bucket name.
func (s *S3Client) Bucket() string { return s.bucket }

// ParseRef splits an "s3://bucket/key" reference. A bare key falls back to
// the configured bucket.
func (s *S3Client) ParseRef(ref string) (bucket, key string, err error) {
	if strings.HasPrefix(ref, "s3://") {
		rest := strings.TrimPrefix(ref, "s3://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("malformed s3 reference %q", ref)
		}
		return parts[0], parts[1], nil
	}
	if s.bucket == "" {
		return "", "", fmt.Errorf("no bucket configured for key reference %q", ref)
	}
	return s.bucket, ref, nil
}

// Fetch downloads a source document by reference.
func (s *S3Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := s.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s/%s: %w", bucket, key, err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("size", len(data)).Msg("fetched document from s3")
	return data, nil
}

// StoreResult uploads the final extraction JSON under the result prefix and
// returns its s3:// reference.
func (s *S3Client) StoreResult(ctx context.Context, jobID string, payload []byte) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("no bucket configured")
	}
	key := path.Join(s.resultPrefix, jobID+".json")
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload result %s: %w", key, err)
	}
	ref := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	log.Info().Str("ref", ref).Int("size", len(payload)).Msg("stored extraction result")
	return ref, nil
}
