package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config       // Configは、環境変数とフラグから組み立てた設定です。
	Manager *workflow.Manager    // Managerは、Orchestrator を作るための生成コンポーネント一式です。
	Store   storage.ImageStore   // Storeは、シーン画像の保存先です。
	History storage.HistoryStore // Historyは、プロジェクトスナップショットの保存先です。
}

// NewAppContext は設定から AppContext を組み立てます。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	store, err := BuildImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.App,
		HTTPClient: httpkit.New(config.DefaultHTTPTimeout),
		Store:      store,
		Tool:       config.DefaultTool,
		Category:   config.DefaultCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗しました: %w", err)
	}

	return &AppContext{
		Config:  cfg,
		Manager: manager,
		Store:   store,
		History: storage.NewFileHistory(cfg.HistoryFile, storage.DefaultHistoryLimit),
	}, nil
}

// BuildImageStore は設定されたバックエンドの ImageStore を構築します。
func BuildImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStore {
	case storage.BackendDataURL:
		slog.InfoContext(ctx, "Using data URL image store")
		return storage.NewDataURLStore(), nil
	case storage.BackendLocal, "":
		slog.InfoContext(ctx, "Using local image store", "dir", cfg.OutputDir)
		return storage.NewLocalStore(cfg.OutputDir, cfg.BaseURL), nil
	case storage.BackendMinIO:
		slog.InfoContext(ctx, "Using MinIO image store", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
		store, err := storage.NewMinIOStore(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("MinIO ストアの初期化に失敗しました: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("未対応の画像ストアです: %s", cfg.ImageStore)
	}
}
