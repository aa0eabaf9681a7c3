package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
)

var _ repositories.AudioStorage = &S3Storage{}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

type failingPresigner struct{}

func (failingPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return nil, errors.New("no credentials")
}

func staticPresigner() *s3.PresignClient {
	client := s3.New(s3.Options{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	return s3.NewPresignClient(client)
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "response.mp3")
	if err := os.WriteFile(path, []byte("ID3fake"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestStoreUploadsAndSigns(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3Storage(putter, staticPresigner(), "voice-bucket", 0, zaptest.NewLogger(t))

	link, err := store.Store(context.Background(), writeAudio(t), "user-1/abc.mp3")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if aws.ToString(putter.input.Bucket) != "voice-bucket" || aws.ToString(putter.input.Key) != "user-1/abc.mp3" {
		t.Errorf("PutObject input = %+v", putter.input)
	}
	if aws.ToString(putter.input.ContentType) != "audio/mpeg" {
		t.Errorf("ContentType = %s, want audio/mpeg", aws.ToString(putter.input.ContentType))
	}
	if string(putter.body) != "ID3fake" {
		t.Errorf("uploaded body = %q", putter.body)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	q := u.Query()
	if q.Get("X-Amz-Expires") != "10" {
		t.Errorf("X-Amz-Expires = %s, want 10", q.Get("X-Amz-Expires"))
	}
	if q.Get("response-content-type") != "audio/mpeg" {
		t.Errorf("response-content-type = %s, want audio/mpeg", q.Get("response-content-type"))
	}
}

func TestStoreCustomExpiry(t *testing.T) {
	store := NewS3Storage(&fakePutter{}, staticPresigner(), "b", time.Minute, zaptest.NewLogger(t))

	link, err := store.Store(context.Background(), writeAudio(t), "k.mp3")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	u, _ := url.Parse(link)
	if u.Query().Get("X-Amz-Expires") != "60" {
		t.Errorf("X-Amz-Expires = %s, want 60", u.Query().Get("X-Amz-Expires"))
	}
}

func TestStoreFailures(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		store := NewS3Storage(&fakePutter{err: errors.New("denied")}, staticPresigner(), "b", 0, zaptest.NewLogger(t))
		_, err := store.Store(context.Background(), writeAudio(t), "k.mp3")
		if !errors.Is(err, entities.ErrStorageUpload) {
			t.Errorf("Store() error = %v, want ErrStorageUpload", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		store := NewS3Storage(&fakePutter{}, staticPresigner(), "b", 0, zaptest.NewLogger(t))
		_, err := store.Store(context.Background(), filepath.Join(t.TempDir(), "none.mp3"), "k.mp3")
		if !errors.Is(err, entities.ErrStorageUpload) {
			t.Errorf("Store() error = %v, want ErrStorageUpload", err)
		}
	})

	t.Run("signing", func(t *testing.T) {
		store := NewS3Storage(&fakePutter{}, failingPresigner{}, "b", 0, zaptest.NewLogger(t))
		_, err := store.Store(context.Background(), writeAudio(t), "k.mp3")
		if !errors.Is(err, entities.ErrStorageSignedURL) {
			t.Errorf("Store() error = %v, want ErrStorageSignedURL", err)
		}
		if entities.ErrorKind(err) != "error.storage_signed_url" {
			t.Errorf("ErrorKind() = %s", entities.ErrorKind(err))
		}
	})
}
