package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は各サブコマンドのフラグが書き込む実行時パラメータなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "あらすじとキャストからシーンごとの絵コンテ画像を生成するのだ。",
	Long: `あらすじを台本（シーン構成）に分解し、キャラクターの見た目を揃えたまま
シーンごとの画像を Gemini で描画するのだ。中断したプロジェクトは履歴から再開できるのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", "", "台本とキャストの生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "画像の描画に使う Gemini モデル名なのだ。")

	rootCmd.AddCommand(runCmd, castCmd, resumeCmd, regenerateCmd, historyCmd, serveCmd, exampleCmd)
}

// preRunAppE はログの出力先とレベルを決めるのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// newApp は環境変数とフラグから設定を組み立て、依存関係を初期化するのだ。
func newApp(ctx context.Context) (*builder.AppContext, error) {
	cfg := config.LoadConfig()
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if cfg.App.GeminiAPIKey == "" {
		return nil, fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	cfg.ApplyOptions(opts)

	app, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}
	return app, nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
