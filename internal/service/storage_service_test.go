package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/ismaelcompsci/postall/configs"
)

// fakeBucket serves HeadObject/PutObject for a fixed set of keys so the
// storage service can run against a local endpoint.
type fakeBucket struct {
	objects map[string][]byte
	heads   int
	puts    int
}

func (b *fakeBucket) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/test-bucket/")
		switch r.Method {
		case http.MethodHead:
			b.heads++
			body, ok := b.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			b.puts++
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected method %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestStorageService(t *testing.T, bucket *fakeBucket) (*StorageService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(bucket.handler(t))

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(srv.URL),
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider("access", "secret", ""),
		UsePathStyle: true,
		HTTPClient:   srv.Client(),
	})

	c := config.Config{}
	c.R2.BucketName = "test-bucket"

	return newStorageService(c, client), srv
}

func TestResolveMediaURLsWithCover(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"file-1":  []byte("video"),
		"cover-1": []byte("image"),
	}}
	s, srv := newTestStorageService(t, bucket)
	defer srv.Close()

	urls, err := s.ResolveMediaURLs(context.Background(), "file-1", "cover-1")
	if err != nil {
		t.Fatalf("ResolveMediaURLs: %v", err)
	}

	if !strings.Contains(urls.FileURL, "file-1") {
		t.Fatalf("FileURL=%s", urls.FileURL)
	}
	if !strings.Contains(urls.CoverURL, "cover-1") {
		t.Fatalf("CoverURL=%s", urls.CoverURL)
	}
	if !strings.Contains(urls.FileURL, "X-Amz-Signature") {
		t.Fatalf("FileURL is not signed: %s", urls.FileURL)
	}
	if bucket.heads != 2 {
		t.Fatalf("head calls=%d, want 2", bucket.heads)
	}
}

func TestResolveMediaURLsWithoutCover(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{"file-1": []byte("video")}}
	s, srv := newTestStorageService(t, bucket)
	defer srv.Close()

	urls, err := s.ResolveMediaURLs(context.Background(), "file-1", "")
	if err != nil {
		t.Fatalf("ResolveMediaURLs: %v", err)
	}

	if urls.CoverURL != "" {
		t.Fatalf("CoverURL=%s, want empty", urls.CoverURL)
	}
	if bucket.heads != 1 {
		t.Fatalf("head calls=%d, want 1", bucket.heads)
	}
}

func TestResolveMediaURLsMissingFile(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{}}
	s, srv := newTestStorageService(t, bucket)
	defer srv.Close()

	_, err := s.ResolveMediaURLs(context.Background(), "missing", "")

	var notFound *MediaNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want MediaNotFoundError", err)
	}
	if notFound.Key != "missing" {
		t.Fatalf("Key=%s, want missing", notFound.Key)
	}
}

func TestResolveMediaURLsMissingCover(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{"file-1": []byte("video")}}
	s, srv := newTestStorageService(t, bucket)
	defer srv.Close()

	_, err := s.ResolveMediaURLs(context.Background(), "file-1", "missing-cover")

	var notFound *MediaNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want MediaNotFoundError", err)
	}
	if notFound.Key != "missing-cover" {
		t.Fatalf("Key=%s, want missing-cover", notFound.Key)
	}
}

func TestUpload(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{}}
	s, srv := newTestStorageService(t, bucket)
	defer srv.Close()

	if err := s.Upload(context.Background(), "new-key", []byte("video"), "video/mp4"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if bucket.puts != 1 {
		t.Fatalf("put calls=%d, want 1", bucket.puts)
	}
}
