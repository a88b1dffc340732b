package storyboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
)

// CastGenerator はキャラクター生成を担当します。*generator.CastBuilder が満たします。
type CastGenerator interface {
	BuildCast(ctx context.Context, req generator.CastRequest) (domain.Cast, error)
}

// SceneWriter はバッチ台本生成を担当します。*generator.ScriptGenerator が満たします。
type SceneWriter interface {
	GenerateScenesInBatches(ctx context.Context, req generator.ScriptRequest, cancel *domain.CancelToken, onProgress generator.ProgressFunc) ([]domain.SceneDraft, error)
}

// Input はランの入力です。
type Input struct {
	RunID          string                 `json:"runId,omitempty" yaml:"run_id"`
	Title          string                 `json:"title,omitempty" yaml:"title"`
	Synopsis       string                 `json:"synopsis" yaml:"synopsis"`
	Characters     domain.Cast            `json:"characters" yaml:"characters"`
	SceneCount     int                    `json:"sceneCount" yaml:"scene_count"`
	BatchSize      int                    `json:"batchSize,omitempty" yaml:"batch_size"`
	AspectRatio    string                 `json:"aspectRatio,omitempty" yaml:"aspect_ratio"`
	RegenerateCast bool                   `json:"regenerateCast,omitempty" yaml:"regenerate_cast"` // true なら入力済みのキャラクターも生成結果で置き換える
	Reference      *domain.ReferenceImage `json:"-" yaml:"-"`
}

// Validate はプロバイダに触れる前に入力を検証します。
func (in Input) Validate() error {
	if strings.TrimSpace(in.Synopsis) == "" {
		return domain.NewValidationError("synopsis", "synopsis is required")
	}
	if !in.Characters.HasComplete() {
		return domain.NewValidationError("characters", "at least one character with a name and description is required")
	}
	if len(in.Characters) > generator.MaxCastSize {
		return domain.NewValidationError("characters", fmt.Sprintf("at most %d characters are supported", generator.MaxCastSize))
	}
	if in.SceneCount <= 0 {
		return domain.NewValidationError("sceneCount", "scene count must be positive")
	}
	if in.BatchSize < 0 {
		return domain.NewValidationError("batchSize", "batch size must not be negative")
	}
	return nil
}

// needsCast はキャスト生成の呼び出しが必要かを返します。
func (in Input) needsCast() bool {
	return in.RegenerateCast || in.Characters.NeedsFill()
}
