package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
)

// renderPending は画像のないシーンをシーン番号順に1枚ずつ描画します。
// 1シーンの失敗はそのシーンに記録し、ランは続行します。
func (o *Orchestrator) renderPending(ctx context.Context, token *domain.CancelToken) error {
	o.mu.RLock()
	runID := o.state.RunID
	aspect := o.input.AspectRatio
	total := len(o.state.Scenes)
	pending := o.state.Scenes.Pending()
	drafts := make([]domain.SceneDraft, len(pending))
	for i, idx := range pending {
		drafts[i] = o.state.Scenes[idx].SceneDraft
	}
	o.mu.RUnlock()

	alreadyRendered := total - len(pending)
	failed := 0

	for i, draft := range drafts {
		if token.Cancelled() {
			return o.cancelled(ctx)
		}

		o.updateScene(draft.SceneNumber, func(sc *domain.RenderedScene) {
			sc.IsLoading = true
			sc.LastError = nil
		})

		logger := slog.With("run_id", runID, "scene", draft.SceneNumber)
		logger.InfoContext(ctx, "Rendering scene", "position", i+1, "pending", len(drafts))

		startTime := time.Now()
		url, err := o.renderScene(ctx, runID, draft, aspect)
		if err != nil && domain.IsCancelled(err) {
			return o.cancelled(ctx)
		}

		o.update(func(s *domain.RunState) {
			idx := s.Scenes.Index(draft.SceneNumber)
			if idx < 0 {
				return
			}
			sc := &s.Scenes[idx]
			sc.IsLoading = false
			if err != nil {
				sc.LastError = domain.NewSceneError(err)
			} else {
				sc.ImageURL = url
				sc.LastError = nil
			}
			setProgressLocked(s, progressScriptDone+(progressComplete-progressScriptDone)*(alreadyRendered+i+1)/total)
		})

		if err != nil {
			failed++
			logger.WarnContext(ctx, "Scene rendering failed", "error", err)
			continue
		}
		logger.InfoContext(ctx, "Scene rendered", "duration", time.Since(startTime).Round(time.Millisecond))
	}

	o.mu.Lock()
	if o.state.Status.CanTransition(domain.StatusDone) {
		o.state.Status = domain.StatusDone
		setProgressLocked(&o.state, progressComplete)
	}
	o.publishLocked()
	o.mu.Unlock()

	slog.InfoContext(ctx, "Storyboard run completed", "run_id", runID, "scenes", total, "failed", failed)
	return nil
}

// renderScene は1シーンの画像を生成して保存し、URL を返します。
// 画像生成はリトライしますが、保存の失敗はそのまま返します。
func (o *Orchestrator) renderScene(ctx context.Context, runID string, draft domain.SceneDraft, aspect string) (string, error) {
	img, err := retry.Do(ctx, o.opts.Retry, func(ctx context.Context) (domain.Image, error) {
		if o.opts.ImageLimiter != nil {
			if err := o.opts.ImageLimiter.Wait(ctx); err != nil {
				return domain.Image{}, err
			}
		}
		return o.renderer.GenerateImage(ctx, draft.FullPrompt, aspect)
	})
	if err != nil {
		return "", err
	}

	key, err := asset.SceneObjectKey(runID, draft.SceneNumber, img.MimeType)
	if err != nil {
		return "", &domain.StorageError{Key: fmt.Sprintf("scene %d", draft.SceneNumber), Err: err}
	}
	url, err := o.store.Save(ctx, key, img)
	if err != nil {
		var se *domain.StorageError
		if !errors.As(err, &se) {
			err = &domain.StorageError{Key: key, Err: err}
		}
		return "", err
	}
	return url, nil
}

func (o *Orchestrator) updateScene(sceneNumber int, fn func(sc *domain.RenderedScene)) {
	o.update(func(s *domain.RunState) {
		if idx := s.Scenes.Index(sceneNumber); idx >= 0 {
			fn(&s.Scenes[idx])
		}
	})
}

// RegenerateScene は1シーンだけを保存済みの fullPrompt で描画し直し、そのシーンの imageUrl だけを置き換えます。
// ランが Done または Cancelled のときに使えます。同じシーンの再生成が進行中なら ErrSceneBusy を返します。
// 失敗はシーンの lastError にも記録します。
func (o *Orchestrator) RegenerateScene(ctx context.Context, sceneNumber int) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return domain.ErrRunActive
	}
	if o.state.Status != domain.StatusDone && o.state.Status != domain.StatusCancelled {
		o.mu.Unlock()
		return domain.ErrNotRegenerable
	}
	idx := o.state.Scenes.Index(sceneNumber)
	if idx < 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: %d", domain.ErrSceneNotFound, sceneNumber)
	}
	sc := &o.state.Scenes[idx]
	if sc.IsLoading {
		o.mu.Unlock()
		return domain.ErrSceneBusy
	}
	sc.IsLoading = true
	sc.LastError = nil
	draft := sc.SceneDraft
	runID := o.state.RunID
	aspect := o.input.AspectRatio
	if aspect == "" {
		aspect = o.opts.AspectRatio
	}
	o.regenerating++
	o.publishLocked()
	o.mu.Unlock()

	slog.InfoContext(ctx, "Regenerating scene", "run_id", runID, "scene", sceneNumber)
	url, err := o.renderScene(ctx, runID, draft, aspect)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.regenerating--
	if idx := o.state.Scenes.Index(sceneNumber); idx >= 0 {
		sc := &o.state.Scenes[idx]
		sc.IsLoading = false
		if err != nil {
			sc.LastError = domain.NewSceneError(err)
		} else {
			sc.ImageURL = url
		}
	}
	o.publishLocked()

	if err != nil {
		slog.WarnContext(ctx, "Scene regeneration failed", "run_id", runID, "scene", sceneNumber, "error", err)
		return err
	}
	return nil
}
