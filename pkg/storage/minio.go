package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultPresignExpiry = 72 * time.Hour

// MinIOConfig は MinIO (S3 互換ストレージ) への接続設定です。
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Expiry    time.Duration
}

// MinIOStore は画像をバケットにアップロードし、署名付き URL を返します。
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

// NewMinIOStore はクライアントを初期化し、バケットがなければ作成します。
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("MinIO のエンドポイントとバケット名は必須です")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO クライアントの初期化に失敗しました: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("バケットの確認に失敗しました: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("バケットの作成に失敗しました: %w", err)
		}
		slog.InfoContext(ctx, "Bucket created", "bucket", cfg.Bucket)
	}

	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		expiry: expiry,
	}, nil
}

// Save は画像をアップロードし、署名付きの GET URL を返します。
func (s *MinIOStore) Save(ctx context.Context, key string, img domain.Image) (string, error) {
	objectName := path.Join(s.prefix, key)
	contentType := img.MimeType
	if contentType == "" {
		contentType = "image/png"
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", &domain.StorageError{Key: objectName, Err: err}
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, make(url.Values))
	if err != nil {
		return "", &domain.StorageError{Key: objectName, Err: fmt.Errorf("署名付き URL の生成に失敗しました: %w", err)}
	}

	slog.DebugContext(ctx, "Image uploaded", "bucket", s.bucket, "object", objectName)
	return presignedURL.String(), nil
}
