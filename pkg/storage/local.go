package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// LocalStore は画像をローカルディレクトリに書き出します。
type LocalStore struct {
	baseDir string
	baseURL string // 空の場合はファイルパスをそのまま URL として返す
}

// NewLocalStore は LocalStore を生成します。
func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save は baseDir/key に画像を書き込みます。
func (s *LocalStore) Save(ctx context.Context, key string, img domain.Image) (string, error) {
	outputPath, err := asset.ResolveOutputPath(s.baseDir, key)
	if err != nil {
		return "", &domain.StorageError{Key: key, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", &domain.StorageError{Key: key, Err: fmt.Errorf("ディレクトリの作成に失敗しました: %w", err)}
	}
	if err := os.WriteFile(outputPath, img.Data, 0o644); err != nil {
		return "", &domain.StorageError{Key: key, Err: err}
	}

	slog.DebugContext(ctx, "Image saved", "path", outputPath, "bytes", len(img.Data))
	if s.baseURL != "" {
		return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(key), "/"), nil
	}
	return outputPath, nil
}
