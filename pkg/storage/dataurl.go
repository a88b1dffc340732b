package storage

import (
	"context"
	"encoding/base64"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// DataURLStore は画像を data URL に変換するだけで、外部には何も書き込みません。
type DataURLStore struct{}

// NewDataURLStore は DataURLStore を生成します。
func NewDataURLStore() *DataURLStore {
	return &DataURLStore{}
}

// Save は "data:<mime>;base64,..." 形式の URL を返します。
func (s *DataURLStore) Save(_ context.Context, _ string, img domain.Image) (string, error) {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
