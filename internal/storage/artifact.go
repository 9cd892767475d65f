// internal/storage/artifact.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/retailinventory/forecast-engine/internal/config"
)

// ArtifactStore keeps versioned model parameter blobs in object storage
// for audit and rollback. Objects are write-once; nothing deletes them.
type ArtifactStore interface {
	PutModel(ctx context.Context, storeID, productID string, version int, blob []byte) error
	GetModel(ctx context.Context, storeID, productID string, version int) ([]byte, error)
}

type minioArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore connects to an S3-compatible endpoint and ensures the
// configured bucket exists.
func NewArtifactStore(cfg config.ArtifactConfig) (ArtifactStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("artifact endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("artifact credentials must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect artifact store: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check artifact bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create artifact bucket: %w", err)
		}
	}

	return &minioArtifactStore{client: client, bucket: cfg.Bucket}, nil
}

func artifactKey(storeID, productID string, version int) string {
	return fmt.Sprintf("models/%s/%s/%d.json", storeID, productID, version)
}

func (s *minioArtifactStore) PutModel(ctx context.Context, storeID, productID string, version int, blob []byte) error {
	key := artifactKey(storeID, productID, version)
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("upload model artifact %s: %w", key, err)
	}
	return nil
}

func (s *minioArtifactStore) GetModel(ctx context.Context, storeID, productID string, version int) ([]byte, error) {
	key := artifactKey(storeID, productID, version)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch model artifact %s: %w", key, err)
	}
	defer obj.Close()

	blob, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", key, err)
	}
	return blob, nil
}
