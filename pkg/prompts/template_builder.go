package prompts

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrUnknownMode は登録されていないモードが指定されたことを示します。
var ErrUnknownMode = errors.New("unknown prompt mode")

// TextPromptBuilder は埋め込みテンプレートを保持し、モードに応じたプロンプトを組み立てます。
type TextPromptBuilder struct {
	templates map[string]*template.Template
}

// NewTextPromptBuilder は埋め込まれた全モードのテンプレートを解析して TextPromptBuilder を返します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	return newTextPromptBuilder(allTemplates)
}

func newTextPromptBuilder(sources map[string]string) (*TextPromptBuilder, error) {
	templates := make(map[string]*template.Template, len(sources))
	for mode, src := range sources {
		if strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' が空です", mode)
		}
		// 未定義のフィールドはプロバイダに送る前にエラーにします。
		tmpl, err := template.New(mode).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' の解析に失敗しました: %w", mode, err)
		}
		templates[mode] = tmpl
	}
	return &TextPromptBuilder{templates: templates}, nil
}

// Build はモードのテンプレートに data を適用します。
// 結果が空のプロンプトはプロバイダ呼び出しを無駄にするためエラーにします。
func (b *TextPromptBuilder) Build(mode string, data TemplateData) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプト '%s' の生成に失敗しました: %w", mode, err)
	}
	prompt := strings.TrimSpace(sb.String())
	if prompt == "" {
		return "", fmt.Errorf("プロンプト '%s' の生成結果が空です", mode)
	}
	return prompt, nil
}
