package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const defaultCastCount = 3

// Execute は入力ファイルを読み込み、キャスト生成から描画までを実行するのだ。
// ctx がキャンセルされると（Ctrl-C など）協調的キャンセルを要求し、途中までの結果も履歴に保存するのだ。
func Execute(ctx context.Context, app *builder.AppContext, progress io.Writer) (domain.ProjectSnapshot, error) {
	opts := app.Config.Options
	if opts.InputFile == "" {
		return domain.ProjectSnapshot{}, fmt.Errorf("入力ファイル（--input）を指定してほしいのだ")
	}
	in, err := config.LoadRunInput(opts.InputFile)
	if err != nil {
		return domain.ProjectSnapshot{}, err
	}
	opts.ApplyTo(&in)
	if in.BatchSize == 0 {
		in.BatchSize = app.Config.App.BatchSize
	}
	if opts.ReferenceImage != "" {
		if in.Reference, err = config.LoadReferenceImage(opts.ReferenceImage); err != nil {
			return domain.ProjectSnapshot{}, err
		}
	}

	orch := app.Manager.NewOrchestrator()
	slog.InfoContext(ctx, "Starting storyboard pipeline",
		"scenes", in.SceneCount,
		"characters", len(in.Characters),
		"text_model", app.Config.App.GeminiModel,
		"image_model", app.Config.App.ImageModel)

	runErr := runWithProgress(ctx, orch, progress, func(ctx context.Context) error {
		return orch.Run(ctx, in)
	})
	return finalize(ctx, app, orch, in.Title, runErr)
}

// ExecuteResume は履歴のプロジェクトを読み込み、画像のないシーンだけを描画するのだ。
func ExecuteResume(ctx context.Context, app *builder.AppContext, projectID string, progress io.Writer) (domain.ProjectSnapshot, error) {
	snap, err := app.History.Get(projectID)
	if err != nil {
		return domain.ProjectSnapshot{}, err
	}

	orch := app.Manager.NewOrchestrator()
	slog.InfoContext(ctx, "Resuming project", "project_id", projectID, "scenes", len(snap.Data.Scenes))
	runErr := runWithProgress(ctx, orch, progress, func(ctx context.Context) error {
		return orch.Resume(ctx, snap)
	})
	return finalize(ctx, app, orch, snap.Title, runErr)
}

// ExecuteRegenerate は履歴のプロジェクトの1シーンだけを描画し直すのだ。
func ExecuteRegenerate(ctx context.Context, app *builder.AppContext, projectID string, sceneNumber int) (domain.ProjectSnapshot, error) {
	snap, err := app.History.Get(projectID)
	if err != nil {
		return domain.ProjectSnapshot{}, err
	}

	orch := app.Manager.NewOrchestrator()
	if err := orch.Load(snap); err != nil {
		return domain.ProjectSnapshot{}, err
	}
	regenErr := orch.RegenerateScene(ctx, sceneNumber)
	if regenErr != nil && (errors.Is(regenErr, domain.ErrSceneNotFound) || errors.Is(regenErr, domain.ErrSceneBusy)) {
		return domain.ProjectSnapshot{}, regenErr
	}
	saved, err := save(ctx, app, orch, snap.Title)
	if err != nil {
		return saved, err
	}
	if regenErr != nil {
		return saved, fmt.Errorf("シーン %d の再生成に失敗したのだ: %w", sceneNumber, regenErr)
	}
	return saved, nil
}

// ExecuteCast は入力ファイルの未完成スロットをキャスト生成で埋め、YAML で書き出すのだ。
func ExecuteCast(ctx context.Context, app *builder.AppContext, out io.Writer) (domain.Cast, error) {
	opts := app.Config.Options
	if opts.InputFile == "" {
		return nil, fmt.Errorf("入力ファイル（--input）を指定してほしいのだ")
	}
	in, err := config.LoadRunInput(opts.InputFile)
	if err != nil {
		return nil, err
	}
	if opts.ReferenceImage != "" {
		if in.Reference, err = config.LoadReferenceImage(opts.ReferenceImage); err != nil {
			return nil, err
		}
	}

	count := opts.CastCount
	if count <= 0 {
		count = len(in.Characters)
	}
	if count <= 0 {
		count = defaultCastCount
	}

	orch := app.Manager.NewOrchestrator()
	generated, err := orch.GenerateCast(ctx, generator.CastRequest{
		Topic:     in.Synopsis,
		Count:     count,
		Reference: in.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("キャスト生成に失敗したのだ: %w", err)
	}

	cast := domain.MergeCast(in.Characters, generated, opts.RegenerateCast)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]domain.Cast{"characters": cast}); err != nil {
		return nil, fmt.Errorf("キャストの書き出しに失敗したのだ: %w", err)
	}
	return cast, enc.Close()
}

// runWithProgress はランと進捗表示を並行して動かすのだ。
// ctx のキャンセルはランを中断せず、Cancel を通じて次の境界で止めるのだ。
func runWithProgress(ctx context.Context, orch *storyboard.Orchestrator, w io.Writer, run func(ctx context.Context) error) error {
	updates, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	finished := make(chan struct{})
	var eg errgroup.Group

	eg.Go(func() error {
		defer close(finished)
		return run(context.WithoutCancel(ctx))
	})

	eg.Go(func() error {
		p := newProgressPrinter(w)
		interrupt := ctx.Done()
		for {
			select {
			case st := <-updates:
				p.print(st)
			case <-interrupt:
				slog.Warn("Interrupt received, cancelling after the current step")
				orch.Cancel()
				interrupt = nil
			case <-finished:
				p.print(orch.State())
				return nil
			}
		}
	})

	return eg.Wait()
}

// finalize はランの結果を履歴とプロジェクトファイルに保存するのだ。
// 入力エラーや同時実行エラーではランが始まっていないので何も保存しないのだ。
func finalize(ctx context.Context, app *builder.AppContext, orch *storyboard.Orchestrator, title string, runErr error) (domain.ProjectSnapshot, error) {
	var ve *domain.ValidationError
	if errors.As(runErr, &ve) || errors.Is(runErr, domain.ErrRunActive) {
		return domain.ProjectSnapshot{}, runErr
	}

	st := orch.State()
	if st.Status == domain.StatusFailed {
		return domain.ProjectSnapshot{}, fmt.Errorf("ストーリーボードの生成に失敗したのだ: %w", runErr)
	}

	saved, err := save(ctx, app, orch, title)
	if err != nil {
		return saved, err
	}
	if domain.IsCancelled(runErr) {
		slog.InfoContext(ctx, "Partial storyboard saved", "project_id", saved.ID, "rendered", st.Scenes.RenderedCount(), "scenes", len(st.Scenes))
	}
	return saved, runErr
}

func save(ctx context.Context, app *builder.AppContext, orch *storyboard.Orchestrator, title string) (domain.ProjectSnapshot, error) {
	saved, err := app.History.Save(orch.Snapshot(title))
	if err != nil {
		return domain.ProjectSnapshot{}, fmt.Errorf("履歴の保存に失敗したのだ: %w", err)
	}

	path, err := writeProjectFile(app.Config.OutputDir, saved)
	if err != nil {
		return saved, err
	}
	slog.InfoContext(ctx, "Storyboard saved", "project_id", saved.ID, "path", path)
	return saved, nil
}

// writeProjectFile はスナップショットを <outputDir>/<id>/storyboard.json に、
// 読み物としての絵コンテを同じディレクトリの storyboard.md に書き出すのだ。
func writeProjectFile(outputDir string, snap domain.ProjectSnapshot) (string, error) {
	path, err := asset.ResolveOutputPath(outputDir, filepath.Join(snap.ID, asset.DefaultProjectFileName))
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗したのだ: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("プロジェクトのシリアライズに失敗したのだ: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリの作成に失敗したのだ: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("プロジェクトファイルの書き込みに失敗したのだ: %w", err)
	}

	markdown := publisher.NewMarkdownPublisher().BuildStoryboardMarkdown(snap)
	mdPath := filepath.Join(filepath.Dir(path), publisher.DefaultMarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("絵コンテの書き込みに失敗したのだ: %w", err)
	}
	return path, nil
}
