package storyboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Snapshot は現在のランを履歴に保存できる形に変換します。ID はランの RunID です。
func (o *Orchestrator) Snapshot(title string) domain.ProjectSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if title == "" {
		title = o.input.Title
	}
	if title == "" {
		title = firstLine(o.input.Synopsis, 40)
	}

	s := o.state.Clone()
	for i := range s.Scenes {
		s.Scenes[i].IsLoading = false
	}
	return domain.ProjectSnapshot{
		ID:        s.RunID,
		Timestamp: time.Now(),
		Tool:      o.opts.Tool,
		Category:  o.opts.Category,
		Title:     title,
		Data: domain.ProjectData{
			Synopsis:    o.input.Synopsis,
			Characters:  s.Characters,
			Scenes:      s.Scenes,
			SceneCount:  o.input.SceneCount,
			AspectRatio: o.input.AspectRatio,
			Status:      string(s.Status),
		},
	}
}

// resumeInput はスナップショットからランの入力を復元します。
func resumeInput(snap domain.ProjectSnapshot) Input {
	count := snap.Data.SceneCount
	if count <= 0 {
		count = len(snap.Data.Scenes)
	}
	return Input{
		RunID:       snap.ID,
		Title:       snap.Title,
		Synopsis:    snap.Data.Synopsis,
		Characters:  snap.Data.Characters.Copy(),
		SceneCount:  count,
		AspectRatio: snap.Data.AspectRatio,
	}
}

// prepareResume はスナップショットの状態でランを開始します。
// 台本が保存されていなければ通常のランとして扱い、fresh に true を返します。
func (o *Orchestrator) prepareResume(snap domain.ProjectSnapshot) (in Input, token *domain.CancelToken, done chan struct{}, fresh bool, err error) {
	in = resumeInput(snap)
	if len(snap.Data.Scenes) == 0 {
		if err = in.Validate(); err != nil {
			return in, nil, nil, false, err
		}
		token, done, err = o.begin(in, nil, in.Characters.Copy())
		return in, token, done, true, err
	}

	scenes := snap.Data.Scenes.Copy()
	for i := range scenes {
		scenes[i].IsLoading = false
	}
	scenes.SortByNumber()
	token, done, err = o.begin(in, scenes, in.Characters.Copy())
	return in, token, done, false, err
}

// Resume は保存済みプロジェクトを読み込み、画像のないシーンだけを描画します。
// キャストと台本は再生成しません。
func (o *Orchestrator) Resume(ctx context.Context, snap domain.ProjectSnapshot) error {
	_, token, done, fresh, err := o.prepareResume(snap)
	if err != nil {
		return err
	}
	if fresh {
		return o.execute(ctx, token, done)
	}
	return o.resume(ctx, token, done)
}

// StartResume は Resume をバックグラウンドで開始します。
func (o *Orchestrator) StartResume(ctx context.Context, snap domain.ProjectSnapshot) error {
	_, token, done, fresh, err := o.prepareResume(snap)
	if err != nil {
		return err
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if fresh {
			_ = o.execute(bg, token, done)
			return
		}
		_ = o.resume(bg, token, done)
	}()
	return nil
}

func (o *Orchestrator) resume(ctx context.Context, token *domain.CancelToken, done chan struct{}) error {
	defer o.finish(done)

	o.mu.Lock()
	runID := o.state.RunID
	total := len(o.state.Scenes)
	rendered := o.state.Scenes.RenderedCount()
	if rendered == total {
		o.state.Status = domain.StatusDone
		setProgressLocked(&o.state, progressComplete)
		o.publishLocked()
		o.mu.Unlock()
		slog.InfoContext(ctx, "Resumed project has no pending scenes", "run_id", runID, "scenes", total)
		return nil
	}
	setProgressLocked(&o.state, progressScriptDone+(progressComplete-progressScriptDone)*rendered/total)
	o.mu.Unlock()

	slog.InfoContext(ctx, "Resuming storyboard run", "run_id", runID, "scenes", total, "pending", total-rendered)
	o.transition(domain.StatusRenderingImages)
	return o.renderPending(ctx, token)
}

func firstLine(s string, limit int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > limit {
		r = r[:limit]
	}
	return string(r)
}

// Load は保存済みプロジェクトを描画せずに読み込みます。
// 読み込み後は Done（全シーン描画済み）または Cancelled として扱い、RegenerateScene や Resume を呼び出せます。
func (o *Orchestrator) Load(snap domain.ProjectSnapshot) error {
	if len(snap.Data.Scenes) == 0 {
		return domain.NewValidationError("scenes", "project has no scenes to load")
	}
	in := resumeInput(snap)
	scenes := snap.Data.Scenes.Copy()
	for i := range scenes {
		scenes[i].IsLoading = false
	}
	scenes.SortByNumber()

	_, done, err := o.begin(in, scenes, in.Characters.Copy())
	if err != nil {
		return err
	}

	o.mu.Lock()
	total := len(o.state.Scenes)
	rendered := o.state.Scenes.RenderedCount()
	if rendered == total {
		o.state.Status = domain.StatusDone
		setProgressLocked(&o.state, progressComplete)
	} else {
		o.state.Status = domain.StatusCancelled
		setProgressLocked(&o.state, progressScriptDone+(progressComplete-progressScriptDone)*rendered/total)
	}
	o.publishLocked()
	o.mu.Unlock()

	o.finish(done)
	slog.Info("Project loaded", "run_id", in.RunID, "scenes", total, "rendered", rendered)
	return nil
}
