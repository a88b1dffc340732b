package storage

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ImageStore は生成された画像を保存し、RenderedScene.ImageURL に入れる URL を返します。
type ImageStore interface {
	Save(ctx context.Context, key string, img domain.Image) (string, error)
}

const (
	BackendDataURL = "dataurl"
	BackendLocal   = "local"
	BackendMinIO   = "minio"
)
