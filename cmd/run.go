package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// runCmd は、キャスト生成から台本、画像描画までを一気に実行するのだ。
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "あらすじから絵コンテを生成するのだ。",
	Long: `入力ファイル（YAML または JSON）のあらすじとキャストを読み込み、
台本をバッチで生成してからシーンごとに画像を描画するのだ。
Ctrl-C で中断しても、描画済みのシーンは履歴に保存されるのだよ。`,
	Example: "  storyboard run -i rooftop.yaml --scenes 24",
	RunE:    runCommand,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&opts.InputFile, "input", "i", "", "あらすじとキャストを書いた入力ファイルのパスなのだ。")
	f.StringVar(&opts.Title, "title", "", "プロジェクトのタイトルなのだ。")
	f.IntVarP(&opts.SceneCount, "scenes", "n", 0, "生成するシーン数なのだ（0 なら入力ファイルの値）。")
	f.IntVar(&opts.BatchSize, "batch-size", 0, "台本を1回の呼び出しで生成するシーン数なのだ。")
	f.StringVar(&opts.AspectRatio, "aspect-ratio", "", "画像のアスペクト比なのだ（例: 16:9）。")
	f.StringVar(&opts.ReferenceImage, "reference", "", "キャスト生成に使う参照画像のパスなのだ。")
	f.BoolVar(&opts.RegenerateCast, "regenerate-cast", false, "入力済みのキャストも生成結果で上書きするのだ。")
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}

	snap, err := pipeline.Execute(ctx, app, os.Stderr)
	if domain.IsCancelled(err) {
		fmt.Printf("⏸  中断したのだ。続きは `storyboard resume %s` で描画できるのだ。\n", snap.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("Storyboard completed", "project_id", snap.ID, "scenes", len(snap.Data.Scenes))
	fmt.Printf("🎬 絵コンテ完成なのだ: %s（%d シーン）\n", snap.ID, snap.Data.Scenes.RenderedCount())
	return nil
}
