package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// resumeCmd は、履歴のプロジェクトのうち画像のないシーンだけを描画するのだ。
var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "中断したプロジェクトの続きを描画するのだ。",
	Long: `履歴に保存されたプロジェクトを読み込み、まだ画像のないシーンだけを描画するのだ。
台本がまだない場合は、最初から生成し直すのだよ。`,
	Args: cobra.ExactArgs(1),
	RunE: resumeCommand,
}

func resumeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}

	snap, err := pipeline.ExecuteResume(ctx, app, args[0], os.Stderr)
	if domain.IsCancelled(err) {
		fmt.Printf("⏸  また中断したのだ。描画済み %d/%d シーン\n", snap.Data.Scenes.RenderedCount(), len(snap.Data.Scenes))
		return nil
	}
	if err != nil {
		return fmt.Errorf("プロジェクトの再開に失敗したのだ: %w", err)
	}
	fmt.Printf("🎬 絵コンテ完成なのだ: %s（%d シーン）\n", snap.ID, snap.Data.Scenes.RenderedCount())
	return nil
}
