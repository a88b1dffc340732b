package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storyboard-kit/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// serveCmd は、ランの開始や進捗の購読を HTTP と WebSocket で受け付けるのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API サーバーを起動するのだ。",
	Long: `POST /api/runs でランを開始し、GET /api/runs/:id/ws で進捗を購読できるのだ。
待ち受けポートは環境変数 PORT で変えられるのだよ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// サーバーではログを JSON で出すのだ。
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	return server.New(app).Run(ctx, ":"+app.Config.Port)
}
