package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
)

// ScriptOptions は ScriptGenerator の動作設定です。
type ScriptOptions struct {
	Retry       retry.Policy
	BatchDelay  time.Duration // バッチ間に挟む固定の待機時間
	StyleSuffix string
}

// ScriptGenerator は長いストーリーボードをバッチに分けて生成します。
type ScriptGenerator struct {
	text          provider.TextGenerator
	promptBuilder prompts.PromptBuilder
	opts          ScriptOptions
}

// NewScriptGenerator は依存関係を注入して ScriptGenerator を初期化します。
func NewScriptGenerator(text provider.TextGenerator, pb prompts.PromptBuilder, opts ScriptOptions) *ScriptGenerator {
	return &ScriptGenerator{
		text:          text,
		promptBuilder: pb,
		opts:          opts,
	}
}

// GenerateScenesInBatches は req.TotalCount 件のシーンを batchSize 件ずつ順番に生成します。
//
// 各バッチの結果は要求件数に切り詰め、シーン番号を通し番号で付け直します。
// バッチの開始前に毎回 cancel を確認し、キャンセルされていればそれまでのシーンと domain.ErrCancelled を返します。
// あるバッチがリトライ上限に達した場合はステージ全体の失敗とし、部分的な台本は返しません。
func (g *ScriptGenerator) GenerateScenesInBatches(
	ctx context.Context,
	req ScriptRequest,
	cancel *domain.CancelToken,
	onProgress ProgressFunc,
) ([]domain.SceneDraft, error) {
	if req.Synopsis == "" {
		return nil, domain.NewValidationError("synopsis", "synopsis is required")
	}
	if req.TotalCount <= 0 {
		return nil, domain.NewValidationError("sceneCount", "scene count must be positive")
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	numBatches := (req.TotalCount + batchSize - 1) / batchSize
	characterContext := req.Characters.Copy().CharacterContext()

	scenes := make([]domain.SceneDraft, 0, req.TotalCount)
	for b := 0; b < numBatches; b++ {
		if cancel.Cancelled() {
			slog.InfoContext(ctx, "Script generation cancelled", "batch", b+1, "scenes", len(scenes))
			return scenes, domain.ErrCancelled
		}

		startNumber := len(scenes) + 1
		countInBatch := min(batchSize, req.TotalCount-len(scenes))
		if countInBatch <= 0 {
			break
		}

		prompt, err := g.promptBuilder.Build(prompts.ModeSceneBatch, g.batchTemplateData(req, characterContext, scenes, startNumber, countInBatch))
		if err != nil {
			return nil, fmt.Errorf("プロンプト生成に失敗: %w", err)
		}

		slog.InfoContext(ctx, "Requesting scene batch",
			"batch", b+1,
			"num_batches", numBatches,
			"start_number", startNumber,
			"count", countInBatch)

		batch, err := retry.Do(ctx, g.opts.Retry, func(ctx context.Context) ([]domain.SceneDraft, error) {
			raw, err := g.text.GenerateStructuredText(ctx, prompt, provider.SceneListSchema)
			if err != nil {
				return nil, err
			}
			return parseScenes(raw)
		})
		if err != nil {
			if domain.IsCancelled(err) {
				return scenes, err
			}
			return nil, fmt.Errorf("batch %d/%d failed: %w", b+1, numBatches, err)
		}

		batch = g.normalizeBatch(batch, startNumber, countInBatch, characterContext)
		if len(batch) < countInBatch {
			slog.WarnContext(ctx, "Provider returned fewer scenes than requested",
				"batch", b+1, "requested", countInBatch, "received", len(batch))
		}
		scenes = append(scenes, batch...)

		if onProgress != nil {
			onProgress(b+1, numBatches)
		}

		if b < numBatches-1 {
			if err := sleepContext(ctx, g.opts.BatchDelay); err != nil {
				return scenes, err
			}
		}
	}

	return scenes, nil
}

func (g *ScriptGenerator) batchTemplateData(req ScriptRequest, characterContext string, prev []domain.SceneDraft, start, count int) prompts.TemplateData {
	data := prompts.TemplateData{
		Synopsis:         req.Synopsis,
		CharacterContext: characterContext,
		StyleSuffix:      g.opts.StyleSuffix,
		StartNumber:      start,
		EndNumber:        start + count - 1,
		Count:            count,
		TotalCount:       req.TotalCount,
	}
	if len(prev) > 0 {
		last := prev[len(prev)-1]
		data.PreviousNumber = last.SceneNumber
		data.PreviousAction = last.Action
	}
	return data
}

// normalizeBatch は要求件数への切り詰めと通し番号の付け直しを行います。
// fullPrompt が空のシーンは、行動・背景・キャラクター・スタイルから組み立てます。
func (g *ScriptGenerator) normalizeBatch(batch []domain.SceneDraft, startNumber, countInBatch int, characterContext string) []domain.SceneDraft {
	if len(batch) > countInBatch {
		batch = batch[:countInBatch]
	}

	out := make([]domain.SceneDraft, len(batch))
	for i, s := range batch {
		s.SceneNumber = startNumber + i
		if s.FullPrompt == "" {
			s.FullPrompt = g.fallbackPrompt(s, characterContext)
		}
		out[i] = s
	}
	return out
}

func (g *ScriptGenerator) fallbackPrompt(s domain.SceneDraft, characterContext string) string {
	p, err := g.promptBuilder.Build(prompts.ModeSceneImage, prompts.TemplateData{
		Action:            s.Action,
		ConsistentContext: s.ConsistentContext,
		CharacterContext:  characterContext,
		StyleSuffix:       g.opts.StyleSuffix,
	})
	if err != nil {
		return s.Action
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
