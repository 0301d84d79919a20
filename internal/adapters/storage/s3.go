package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3API is the subset of the S3 client used by S3FileStorage
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options configures the S3 client. Endpoint and UsePathStyle allow
// S3-compatible stores; static keys are optional and fall back to the
// default credential chain (the Lambda execution role in production).
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// S3FileStorage implements FileStorage on one S3 bucket
type S3FileStorage struct {
	client s3API
	bucket string
}

// NewS3FileStorage builds an S3 client for bucket
func NewS3FileStorage(ctx context.Context, bucket string, opts S3Options) (*S3FileStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return newS3FileStorage(client, bucket), nil
}

func newS3FileStorage(client s3API, bucket string) *S3FileStorage {
	return &S3FileStorage{client: client, bucket: bucket}
}

// Store implements FileStorage.Store
func (s *S3FileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if key == "" {
		return newBucketError("Store", s.bucket, key, ErrInvalidKey, false)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if opts != nil {
		if opts.ContentType != "" {
			input.ContentType = aws.String(opts.ContentType)
		}
		if len(opts.Metadata) > 0 {
			input.Metadata = opts.Metadata
		}
		if !opts.Overwrite {
			input.IfNoneMatch = aws.String("*")
		}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.classify("Store", key, err)
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (s *S3FileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, newBucketError("Retrieve", s.bucket, key, ErrInvalidKey, false)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.classify("Retrieve", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, newBucketError("Retrieve", s.bucket, key, fmt.Errorf("%w: %v", ErrNetworkError, err), true)
	}
	return data, nil
}

// Exists implements FileStorage.Exists
func (s *S3FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, newBucketError("Exists", s.bucket, key, ErrInvalidKey, false)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		classified := s.classify("Exists", key, err)
		if IsNotFound(classified) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// Close implements FileStorage.Close
func (s *S3FileStorage) Close() error {
	return nil
}

// classify maps SDK errors onto the storage error taxonomy. S3 answers 403
// instead of 404 for a missing key when the caller lacks s3:ListBucket, so
// such a miss surfaces as ErrPermissionDenied.
func (s *S3FileStorage) classify(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return newBucketError(op, s.bucket, key, ErrFileNotFound, false)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return newBucketError(op, s.bucket, key, ErrFileNotFound, false)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return newBucketError(op, s.bucket, key, fmt.Errorf("%w: %v", ErrPermissionDenied, err), false)
		case "PreconditionFailed":
			return newBucketError(op, s.bucket, key, ErrFileAlreadyExists, false)
		case "SlowDown", "Throttling", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return newBucketError(op, s.bucket, key, fmt.Errorf("%w: %v", ErrStorageUnavailable, err), true)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusNotFound:
			return newBucketError(op, s.bucket, key, ErrFileNotFound, false)
		case status == http.StatusForbidden:
			return newBucketError(op, s.bucket, key, fmt.Errorf("%w: %v", ErrPermissionDenied, err), false)
		case status == http.StatusPreconditionFailed:
			return newBucketError(op, s.bucket, key, ErrFileAlreadyExists, false)
		case status == http.StatusTooManyRequests || status >= 500:
			return newBucketError(op, s.bucket, key, fmt.Errorf("%w: %v", ErrStorageUnavailable, err), true)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newBucketError(op, s.bucket, key, fmt.Errorf("%w: %v", ErrTimeout, err), false)
	}

	return newBucketError(op, s.bucket, key, err, false)
}
