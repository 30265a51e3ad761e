package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/semaphore"
)

const originalNameMetaKey = "Original-Name"

// S3Storage adapts a MinIO client to ObjectStorage. When maxConcurrent > 0 it
// bounds in-flight object calls; an open download keeps its slot until the
// stream is closed.
type S3Storage struct {
	client *minio.Client
	slots  *semaphore.Weighted

	// mu guards ensured only; bucket round trips run unlocked.
	mu      sync.Mutex
	ensured map[string]bool
}

func NewS3Storage(client *minio.Client, maxConcurrent int) *S3Storage {
	s := &S3Storage{
		client:  client,
		ensured: make(map[string]bool),
	}
	if maxConcurrent > 0 {
		s.slots = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return s
}

func (s *S3Storage) EnsureBucket(ctx context.Context, bucket string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	s.mu.Lock()
	ensured := s.ensured[bucket]
	s.mu.Unlock()
	if ensured {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			code := minio.ToErrorResponse(err).Code
			if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return fmt.Errorf("ensure s3 bucket %q: %w", bucket, err)
			}
		}
	}

	s.mu.Lock()
	s.ensured[bucket] = true
	s.mu.Unlock()
	return nil
}

// Ping reports whether the bucket is reachable without creating it.
func (s *S3Storage) Ping(ctx context.Context, bucket string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check s3 bucket %q: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("s3 bucket %q does not exist", bucket)
	}
	return nil
}

func (s *S3Storage) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, meta ObjectMeta) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" || body == nil || size <= 0 {
		return ErrValidation
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	opts := minio.PutObjectOptions{ContentType: meta.ContentType}
	if meta.OriginalName != "" {
		// user metadata travels as a header, so it must stay ASCII.
		opts.UserMetadata = map[string]string{originalNameMetaKey: url.PathEscape(meta.OriginalName)}
	}

	if _, err := s.client.PutObject(ctx, bucket, key, body, size, opts); err != nil {
		return fmt.Errorf("put object to s3: %w", err)
	}

	return nil
}

func (s *S3Storage) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if key == "" {
		return nil, ErrValidation
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		release()
		return nil, mapObjectError("get object", err)
	}
	// GetObject is lazy; Stat forces the request so a missing key surfaces here.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		release()
		return nil, mapObjectError("stat object", err)
	}

	return &releasingReader{ReadCloser: obj, release: release}, nil
}

func (s *S3Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("s3 client is nil")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isObjectNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func (s *S3Storage) Delete(ctx context.Context, bucket, key string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) acquire(ctx context.Context) (func(), error) {
	if s.slots == nil {
		return func() {}, nil
	}
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for s3 slot: %w", err)
	}
	var once sync.Once
	return func() { once.Do(func() { s.slots.Release(1) }) }, nil
}

type releasingReader struct {
	io.ReadCloser
	release func()
}

func (r *releasingReader) Close() error {
	err := r.ReadCloser.Close()
	r.release()
	return err
}

func isObjectNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func mapObjectError(op string, err error) error {
	if isObjectNotFound(err) {
		return fmt.Errorf("%s: %w", op, ErrObjectNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
