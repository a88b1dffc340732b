package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// castCmd は、キャラクターの見た目の設定だけを生成して YAML で出力するのだ。
var castCmd = &cobra.Command{
	Use:   "cast",
	Short: "キャストの設定を生成して YAML で出力するのだ。",
	Long: `入力ファイルのあらすじ（と参照画像）から登場人物の見た目を生成するのだ。
入力済みの項目は残したまま、空いているところだけを埋めるのだよ。
出力をそのまま入力ファイルの characters に貼り付けられるのだ。`,
	RunE: castCommand,
}

func init() {
	f := castCmd.Flags()
	f.StringVarP(&opts.InputFile, "input", "i", "", "あらすじとキャストを書いた入力ファイルのパスなのだ。")
	f.IntVarP(&opts.CastCount, "count", "c", 0, "生成する人数なのだ（0 なら入力ファイルの人数）。")
	f.StringVar(&opts.ReferenceImage, "reference", "", "見た目の手がかりにする参照画像のパスなのだ。")
	f.BoolVar(&opts.RegenerateCast, "regenerate-cast", false, "入力済みの項目も生成結果で上書きするのだ。")
}

func castCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	if _, err := pipeline.ExecuteCast(ctx, app, os.Stdout); err != nil {
		return err
	}
	return nil
}
