package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// fakeS3 serves objects from a map and returns err for every call when set
type fakeS3 struct {
	objects map[string][]byte
	err     error
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.lastPut = in
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func httpStatusError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("http error"),
		},
	}
}

func TestS3FileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	storage := newS3FileStorage(fake, "cold-start-logs")

	if err := storage.Store(ctx, "log.csv", []byte("header\n"), &StoreOptions{ContentType: "text/csv", Overwrite: true}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if aws.ToString(fake.lastPut.Bucket) != "cold-start-logs" {
		t.Errorf("Wrong bucket: %s", aws.ToString(fake.lastPut.Bucket))
	}
	if fake.lastPut.IfNoneMatch != nil {
		t.Error("Overwrite must not send a precondition")
	}

	data, err := storage.Retrieve(ctx, "log.csv")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if string(data) != "header\n" {
		t.Errorf("Data mismatch: got %q", data)
	}

	exists, err := storage.Exists(ctx, "log.csv")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v; want true, nil", exists, err)
	}

	exists, err = storage.Exists(ctx, "other.csv")
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false, nil", exists, err)
	}

	if err := storage.Store(ctx, "new.csv", []byte("x"), &StoreOptions{}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if aws.ToString(fake.lastPut.IfNoneMatch) != "*" {
		t.Error("Create-only store should send If-None-Match")
	}
}

func TestS3FileStorage_Classify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantDenied    bool
		wantRetryable bool
	}{
		{name: "no such key", err: &types.NoSuchKey{}, wantNotFound: true},
		{name: "api not found code", err: &smithy.GenericAPIError{Code: "NotFound"}, wantNotFound: true},
		{name: "http 404", err: httpStatusError(http.StatusNotFound), wantNotFound: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, wantDenied: true},
		{name: "http 403", err: httpStatusError(http.StatusForbidden), wantDenied: true},
		{name: "slow down", err: &smithy.GenericAPIError{Code: "SlowDown"}, wantRetryable: true},
		{name: "http 503", err: httpStatusError(http.StatusServiceUnavailable), wantRetryable: true},
		{name: "deadline", err: context.DeadlineExceeded},
		{name: "unknown", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newS3FileStorage(&fakeS3{objects: map[string][]byte{}, err: tt.err}, "bucket")
			_, err := storage.Retrieve(context.Background(), "key")
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := IsNotFound(err); got != tt.wantNotFound {
				t.Errorf("IsNotFound = %v, want %v (%v)", got, tt.wantNotFound, err)
			}
			if got := IsPermissionDenied(err); got != tt.wantDenied {
				t.Errorf("IsPermissionDenied = %v, want %v (%v)", got, tt.wantDenied, err)
			}
			if got := IsRetryable(err); got != tt.wantRetryable {
				t.Errorf("IsRetryable = %v, want %v (%v)", got, tt.wantRetryable, err)
			}
		})
	}
}

func TestS3FileStorage_EmptyKey(t *testing.T) {
	storage := newS3FileStorage(&fakeS3{objects: map[string][]byte{}}, "bucket")
	if _, err := storage.Retrieve(context.Background(), ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}
