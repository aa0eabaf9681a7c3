package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

const (
	// DefaultURLExpiry is how long a playback link stays valid
	DefaultURLExpiry = 10 * time.Second

	contentType = "audio/mpeg"
)

// ObjectPutter is the part of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the part of the S3 presign client used for playback links
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewS3Client creates an S3 client from the default AWS configuration chain
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Storage uploads encoded responses and hands out short-lived links to them
type S3Storage struct {
	putter    ObjectPutter
	presigner ObjectPresigner
	bucket    string
	expiry    time.Duration
	logger    *zap.Logger
}

// NewS3Storage creates a new S3 audio storage
func NewS3Storage(putter ObjectPutter, presigner ObjectPresigner, bucket string, expiry time.Duration, logger *zap.Logger) *S3Storage {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &S3Storage{
		putter:    putter,
		presigner: presigner,
		bucket:    bucket,
		expiry:    expiry,
		logger:    logger,
	}
}

// Store uploads the file at path under key and returns a presigned GET URL
func (s *S3Storage) Store(ctx context.Context, path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entities.ErrStorageUpload, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", entities.ErrStorageUpload, err)
	}

	_, err = s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to upload audio", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %w", entities.ErrStorageUpload, err)
	}
	s.logger.Debug("Audio uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int64("bytes", info.Size()))

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:              aws.String(s.bucket),
		Key:                 aws.String(key),
		ResponseContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		s.logger.Error("Failed to sign audio url", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %w", entities.ErrStorageSignedURL, err)
	}

	return req.URL, nil
}
