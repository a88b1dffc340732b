package cmd

import (
	"os"

	"github.com/shouni/go-storyboard-kit/examples"

	"github.com/spf13/cobra"
)

// exampleCmd は、run コマンドの入力ファイルの見本を標準出力に書き出すのだ。
var exampleCmd = &cobra.Command{
	Use:     "example",
	Short:   "入力ファイルの見本を出力するのだ。",
	Example: "  storyboard example > rooftop.yaml && storyboard run -i rooftop.yaml",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := examples.LoadRooftop(); err != nil {
			return err
		}
		_, err := os.Stdout.Write(examples.RooftopYAML)
		return err
	},
}
