package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestMemoryStorageStoresCopy(t *testing.T) {
	store := NewMemoryStorage("https://cdn.test")
	data := []byte("bytes")
	url, err := store.Upload(context.Background(), "media", "/uploads/2026/10/a.png", data, "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.test/media/uploads/2026/10/a.png" {
		t.Fatalf("unexpected url %q", url)
	}
	data[0] = 'X'
	obj, ok := store.Object("media", "uploads/2026/10/a.png")
	if !ok || string(obj.Data) != "bytes" || obj.ContentType != "image/png" {
		t.Fatalf("unexpected object %+v", obj)
	}
}

func TestMemoryStorageRejectsEscapingPaths(t *testing.T) {
	store := NewMemoryStorage("")
	if _, err := store.Upload(context.Background(), "media", "../secret", nil, ""); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected invalid path, got %v", err)
	}
}

func TestFileStorageWritesBelowRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStorage(root, "/static")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	url, err := store.Upload(context.Background(), "media", "posts/a.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "/static/media/posts/a.txt" {
		t.Fatalf("unexpected url %q", url)
	}
	got, err := os.ReadFile(filepath.Join(root, "media", "posts", "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("expected file contents, got %q %v", got, err)
	}
}

type fakePutObject struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutObject) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorageBuildsURLs(t *testing.T) {
	cases := []struct {
		name      string
		endpoint  string
		public    string
		pathStyle bool
		want      string
	}{
		{name: "aws", want: "https://media.s3.eu-west-1.amazonaws.com/a/b.png"},
		{name: "path style", endpoint: "minio.local:9000", pathStyle: true, want: "https://minio.local:9000/media/a/b.png"},
		{name: "virtual host", endpoint: "https://r2.example.com", want: "https://media.r2.example.com/a/b.png"},
		{name: "public base", endpoint: "https://r2.example.com", public: "https://cdn.example.com/", want: "https://cdn.example.com/a/b.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakePutObject{}
			store := NewS3StorageWithClient(client, tc.endpoint, "eu-west-1", tc.public, tc.pathStyle)
			url, err := store.Upload(context.Background(), "media", "a/b.png", []byte("png"), "image/png")
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			if url != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, url)
			}
			if aws.ToString(client.input.Key) != "a/b.png" || aws.ToString(client.input.ContentType) != "image/png" {
				t.Fatalf("unexpected input %+v", client.input)
			}
			if string(client.body) != "png" {
				t.Fatalf("unexpected body %q", client.body)
			}
		})
	}
}

func TestS3StoragePropagatesErrors(t *testing.T) {
	boom := errors.New("access denied")
	store := NewS3StorageWithClient(&fakePutObject{err: boom}, "", "us-east-1", "", false)
	if _, err := store.Upload(context.Background(), "media", "a.png", nil, ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewS3StorageRequiresCredentials(t *testing.T) {
	if _, err := NewS3Storage(S3Config{Region: "us-east-1"}); err == nil {
		t.Fatalf("expected credentials error")
	}
	if _, err := NewS3Storage(S3Config{AccessKeyID: "a", SecretAccessKey: "b", Endpoint: "http://localhost:9000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
