package workflow

import (
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const (
	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
	defaultTTL             = 5 * time.Minute
	defaultRateBurst       = 2
)

// ManagerArgs は Manager の構築に必要な依存関係です。
type ManagerArgs struct {
	Config     config.Config
	HTTPClient httpkit.ClientInterface
	Store      storage.ImageStore

	// Provider を指定すると Gemini クライアントの初期化を省略します。
	Provider      provider.Capability
	PromptBuilder prompts.PromptBuilder

	// Tool と Category は履歴スナップショットに記録されます。
	Tool     string
	Category string
}
