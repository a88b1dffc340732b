package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
	"github.com/shouni/go-storyboard-kit/pkg/storage"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"golang.org/x/time/rate"
)

// Manager は、ストーリーボード生成の各工程を担うコンポーネント群を構築・管理します。
type Manager struct {
	cfg      config.Config
	provider provider.Capability
	store    storage.ImageStore
	script   *generator.ScriptGenerator
	cast     *generator.CastBuilder
	limiter  *rate.Limiter
	tool     string
	category string
}

// New は、設定を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Store == nil {
		return nil, fmt.Errorf("ImageStore は必須です")
	}

	pb, err := initializePromptBuilder(args.PromptBuilder)
	if err != nil {
		return nil, err
	}

	capability := args.Provider
	if capability == nil {
		if args.HTTPClient == nil {
			return nil, fmt.Errorf("httpClient は必須です")
		}
		gp, err := buildGeminiProvider(ctx, args.Config, args.HTTPClient, pb)
		if err != nil {
			return nil, err
		}
		capability = gp
	}

	cfg := args.Config
	policy := retryPolicy(cfg)

	var limiter *rate.Limiter
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), defaultRateBurst)
	}

	return &Manager{
		cfg:      cfg,
		provider: capability,
		store:    args.Store,
		script: generator.NewScriptGenerator(capability, pb, generator.ScriptOptions{
			Retry:       policy,
			BatchDelay:  cfg.BatchDelay,
			StyleSuffix: cfg.StyleSuffix,
		}),
		cast:     generator.NewCastBuilder(capability, capability, pb, policy),
		limiter:  limiter,
		tool:     args.Tool,
		category: args.Category,
	}, nil
}

// NewOrchestrator は Manager の構成で新しい Orchestrator を作成します。
// Orchestrator は1つのランの状態だけを持つため、同時に扱うプロジェクトごとに作成します。
func (m *Manager) NewOrchestrator() *storyboard.Orchestrator {
	return storyboard.New(m.cast, m.script, m.provider, m.store, storyboard.Options{
		Retry:        retryPolicy(m.cfg),
		AspectRatio:  m.cfg.AspectRatio,
		ImageLimiter: m.limiter,
		Tool:         m.tool,
		Category:     m.category,
	})
}

// initializePromptBuilder は PromptBuilder を初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializePromptBuilder(pb prompts.PromptBuilder) (prompts.PromptBuilder, error) {
	if pb != nil {
		return pb, nil
	}

	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return builder, nil
}

func retryPolicy(cfg config.Config) retry.Policy {
	p := retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseDelay}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = config.DefaultMaxAttempts
	}
	return p
}
