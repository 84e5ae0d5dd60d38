package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lumiere/salon/internal/config"
)

// ObjectStore holds catalog images (category and service pictures) in a
// single public bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.BucketImages)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.BucketImages, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.BucketImages, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.BucketImages, err)
		}
	}
	return nil
}

// PutImage uploads an image under the given key and returns its public URL.
func (s *ObjectStore) PutImage(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.BucketImages, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *ObjectStore) RemoveImage(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.BucketImages, key, minio.RemoveObjectOptions{})
}

// PublicURL builds the externally reachable URL for an object. PublicBase
// covers CDN or reverse-proxy fronting; otherwise the endpoint is used as is.
func (s *ObjectStore) PublicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.PublicBase, "/")
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, s.cfg.Endpoint)
	}
	return fmt.Sprintf("%s/%s/%s", base, s.cfg.BucketImages, key)
}
