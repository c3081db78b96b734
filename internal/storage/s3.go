// Package storage hands out presigned upload URLs for user media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadExpiry is how long a presigned upload URL stays valid.
const UploadExpiry = 15 * time.Minute

// ErrNotConfigured is returned when no bucket or endpoint is set.
var ErrNotConfigured = errors.New("object storage not configured")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Config holds the S3 (or MinIO) connection settings.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	// PublicURL is the prefix objects are served from. Defaults to
	// BaseEndpoint/Bucket.
	PublicURL string
}

// PresignedUpload describes where a client should PUT a file and where it
// will be readable afterwards. Key doubles as the photo public_id.
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"public_id"`
	PublicURL string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// S3Storage presigns uploads against one bucket.
type S3Storage struct {
	cfg Config
	now func() time.Time
}

// NewS3Storage returns a storage client, or ErrNotConfigured when bucket or
// endpoint are missing.
func NewS3Storage(cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.BaseEndpoint == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = strings.TrimRight(cfg.BaseEndpoint, "/") + "/" + cfg.Bucket
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &S3Storage{cfg: cfg, now: time.Now}, nil
}

func (s *S3Storage) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey,
			s.cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client), nil
}

// PresignUpload returns a presigned PUT for a new object under prefix/owner.
// ext is the file extension, with or without the leading dot.
func (s *S3Storage) PresignUpload(ctx context.Context, prefix, owner, ext string) (*PresignedUpload, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	key := objectKey(prefix, owner, ext)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(UploadExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		Key:       key,
		PublicURL: s.cfg.PublicURL + "/" + key,
		ExpiresAt: s.now().Add(UploadExpiry),
	}, nil
}

func objectKey(prefix, owner, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(prefix, owner, name)
}
