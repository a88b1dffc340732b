package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/spf13/cobra"
)

// historyCmd は、保存済みプロジェクトを新しい順に一覧表示するのだ。
// API キーは不要なのだ。
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "保存済みプロジェクトの一覧を表示するのだ。",
	RunE:  historyCommand,
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	list, err := storage.NewFileHistory(cfg.HistoryFile, storage.DefaultHistoryLimit).List()
	if err != nil {
		return fmt.Errorf("履歴の読み込みに失敗したのだ: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("まだプロジェクトがないのだ。")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tSTATUS\tSCENES\tTITLE")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			p.ID,
			p.Timestamp.Local().Format("2006-01-02 15:04"),
			p.Data.Status,
			p.Data.Scenes.RenderedCount(), len(p.Data.Scenes),
			p.Title)
	}
	return w.Flush()
}
