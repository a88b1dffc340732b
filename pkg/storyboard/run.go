package storyboard

import (
	"context"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
)

// execute は begin 済みのランをキャスト生成から順に実行します。
func (o *Orchestrator) execute(ctx context.Context, token *domain.CancelToken, done chan struct{}) error {
	defer o.finish(done)

	o.mu.RLock()
	in := o.input
	characters := o.state.Characters.Copy()
	o.mu.RUnlock()

	logger := slog.With("run_id", in.RunID)
	logger.InfoContext(ctx, "Storyboard run started", "scene_count", in.SceneCount, "characters", len(characters))

	// キャスト生成
	if !o.transition(domain.StatusBuildingCast) {
		return domain.ErrRunActive
	}
	if token.Cancelled() {
		return o.cancelled(ctx)
	}
	if in.needsCast() {
		cast, err := o.cast.BuildCast(ctx, generator.CastRequest{
			Topic:     in.Synopsis,
			Count:     len(characters),
			Reference: in.Reference,
		})
		if err != nil {
			if domain.IsCancelled(err) {
				return o.cancelled(ctx)
			}
			return o.fail(ctx, err)
		}
		characters = domain.MergeCast(characters, cast, in.RegenerateCast)
		o.update(func(s *domain.RunState) {
			s.Characters = characters.Copy()
		})
	}
	o.setProgress(progressCastDone)

	// 台本生成
	if token.Cancelled() {
		return o.cancelled(ctx)
	}
	o.transition(domain.StatusWritingScript)

	drafts, err := o.script.GenerateScenesInBatches(ctx, generator.ScriptRequest{
		Synopsis:   in.Synopsis,
		Characters: characters.Copy(),
		TotalCount: in.SceneCount,
		BatchSize:  in.BatchSize,
	}, token, func(batchesDone, numBatches int) {
		o.setProgress(progressCastDone + (progressScriptDone-progressCastDone)*batchesDone/numBatches)
	})
	if err != nil {
		if domain.IsCancelled(err) {
			// キャンセル前に完了したバッチのシーンは残します。
			o.update(func(s *domain.RunState) {
				s.Scenes = domain.SeedScenes(drafts)
			})
			return o.cancelled(ctx)
		}
		return o.fail(ctx, err)
	}

	o.update(func(s *domain.RunState) {
		s.Scenes = domain.SeedScenes(drafts)
		setProgressLocked(s, progressScriptDone)
	})

	// 描画
	o.transition(domain.StatusRenderingImages)
	return o.renderPending(ctx, token)
}

// fail はキャスト生成または台本生成の失敗でランを終了します。
// 部分的なキャストや台本を完成品として見せないよう、シーンは空にします。
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	from := o.state.Status
	if !from.CanTransition(domain.StatusFailed) {
		slog.ErrorContext(ctx, "Unexpected failure outside fatal stages", "run_id", o.state.RunID, "status", from, "error", err)
		return err
	}
	o.state.Status = domain.StatusFailed
	o.state.Scenes = nil
	o.state.Error = err.Error()
	o.publishLocked()

	slog.ErrorContext(ctx, "Storyboard run failed", "run_id", o.state.RunID, "stage", from, "error", err)
	return err
}

// cancelled はキャンセルを確認した時点でランを終了します。それまでの結果は保持します。
func (o *Orchestrator) cancelled(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.state.Scenes {
		o.state.Scenes[i].IsLoading = false
	}
	if o.state.Status.CanTransition(domain.StatusCancelled) {
		o.state.Status = domain.StatusCancelled
	}
	o.publishLocked()

	slog.InfoContext(ctx, "Storyboard run cancelled",
		"run_id", o.state.RunID,
		"scenes", len(o.state.Scenes),
		"rendered", o.state.Scenes.RenderedCount())
	return domain.ErrCancelled
}
