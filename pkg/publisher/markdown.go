package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// DefaultMarkdownFileName は絵コンテを書き出すデフォルトの Markdown ファイル名です。
const DefaultMarkdownFileName = "storyboard.md"

const placeholder = "_(not rendered)_"

// MarkdownPublisher は、保存済みプロジェクトを人が読める絵コンテの Markdown に変換します。
type MarkdownPublisher struct{}

func NewMarkdownPublisher() *MarkdownPublisher {
	return &MarkdownPublisher{}
}

// BuildStoryboardMarkdown は、タイトル、キャスト、シーンごとの画像と描写を1つの Markdown にまとめます。
// 画像のないシーンはプレースホルダーとし、失敗したシーンにはエラーの種類を添えます。
func (mp *MarkdownPublisher) BuildStoryboardMarkdown(snap domain.ProjectSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", snap.Title)
	if s := strings.TrimSpace(snap.Data.Synopsis); s != "" {
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(s, "\n", " "))
	}

	if cast := snap.Data.Characters.Complete(); len(cast) > 0 {
		sb.WriteString("## Cast\n\n")
		for _, c := range cast {
			fmt.Fprintf(&sb, "- %s\n", c.String())
		}
		sb.WriteString("\n")
	}

	for _, sc := range snap.Data.Scenes {
		fmt.Fprintf(&sb, "## Scene %d\n\n", sc.SceneNumber)
		if sc.HasImage() {
			fmt.Fprintf(&sb, "![Scene %d](%s)\n\n", sc.SceneNumber, sc.ImageURL)
		} else {
			sb.WriteString(placeholder + "\n\n")
		}
		if sc.Action != "" {
			fmt.Fprintf(&sb, "- action: %s\n", oneLine(sc.Action))
		}
		if sc.ConsistentContext != "" {
			fmt.Fprintf(&sb, "- context: %s\n", oneLine(sc.ConsistentContext))
		}
		if sc.LastError != nil {
			fmt.Fprintf(&sb, "- error: %s (%s)\n", oneLine(sc.LastError.Message), sc.LastError.Kind)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
