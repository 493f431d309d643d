package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sony/gobreaker/v2"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/config"
)

// ArtifactStore persists raw uploaded documents. The pipeline reads the
// bytes back for extraction, so implementations must return exactly what
// was stored.
type ArtifactStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Fetch(ctx context.Context, key string) ([]byte, error)
	PresignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioArtifactStore stores artifacts in a MinIO bucket. Calls run
// behind a circuit breaker so a flapping object store fails fast instead
// of stalling pipeline workers.
type MinioArtifactStore struct {
	client  *minio.Client
	bucket  string
	config  *config.StorageConfig
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewMinioArtifactStore(cfg *config.StorageConfig) (*MinioArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "artifact-storage",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &MinioArtifactStore{
		client:  client,
		bucket:  cfg.Bucket,
		config:  cfg,
		breaker: breaker,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioArtifactStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Ping verifies the object store is reachable.
func (s *MinioArtifactStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// Put uploads a raw artifact under the given key.
func (s *MinioArtifactStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

// Fetch reads a stored artifact back in full.
func (s *MinioArtifactStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := s.breaker.Execute(func() ([]byte, error) {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		return io.ReadAll(obj)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact: %w", err)
	}
	return data, nil
}

// PresignedURL generates a presigned URL for the artifact with expiration.
func (s *MinioArtifactStore) PresignedURL(ctx context.Context, key string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Delete removes an artifact.
func (s *MinioArtifactStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// MemoryArtifactStore keeps artifacts in a map. Used in tests and for
// running without an object store.
type MemoryArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{objects: make(map[string][]byte)}
}

func (s *MemoryArtifactStore) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *MemoryArtifactStore) Fetch(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", key)
	}
	return bytes.Clone(data), nil
}

func (s *MemoryArtifactStore) PresignedURL(_ context.Context, key string) (string, error) {
	return "memory://" + key, nil
}

func (s *MemoryArtifactStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
