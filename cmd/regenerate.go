package cmd

import (
	"fmt"
	"strconv"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// regenerateCmd は、保存済みプロジェクトの1シーンだけを描画し直すのだ。
// 台本はそのまま使うので、テキスト生成のコストはかからないのだよ。
var regenerateCmd = &cobra.Command{
	Use:   "regenerate <project-id> <scene-number>",
	Short: "1シーンの画像だけを描画し直すのだ。",
	Args:  cobra.ExactArgs(2),
	RunE:  regenerateCommand,
}

func regenerateCommand(cmd *cobra.Command, args []string) error {
	sceneNumber, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("シーン番号は整数で指定してほしいのだ: %q", args[1])
	}

	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}

	snap, err := pipeline.ExecuteRegenerate(ctx, app, args[0], sceneNumber)
	if err != nil {
		return err
	}
	idx := snap.Data.Scenes.Index(sceneNumber)
	fmt.Printf("🖼  シーン %d を描き直したのだ: %s\n", sceneNumber, snap.Data.Scenes[idx].ImageURL)
	return nil
}
