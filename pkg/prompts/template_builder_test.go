package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestTextPromptBuilder_Build(t *testing.T) {
	pb, err := NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("ビルダーの初期化に失敗しました: %v", err)
	}

	t.Run("バッチごとにグローバルな制約が毎回含まれること", func(t *testing.T) {
		got, err := pb.Build(ModeSceneBatch, TemplateData{
			Synopsis:         "港町の少女が灯台守になる話",
			CharacterContext: "- ミナ: red scarf",
			StyleSuffix:      "watercolor",
			StartNumber:      11,
			EndNumber:        20,
			Count:            10,
			TotalCount:       30,
			PreviousNumber:   10,
			PreviousAction:   "ミナが灯台の扉を開ける",
		})
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		for _, want := range []string{"港町の少女", "- ミナ: red scarf", "watercolor", "exactly 10 scenes", "11 to 20", "scene 10"} {
			if !strings.Contains(got, want) {
				t.Errorf("プロンプトに %q が含まれていません:\n%s", want, got)
			}
		}
		if strings.Contains(got, "final scenes") {
			t.Error("最終バッチではないのに結末の指示が含まれています")
		}
	})

	t.Run("参照画像の解析結果が制約として埋め込まれること", func(t *testing.T) {
		got, err := pb.Build(ModeCast, TemplateData{
			Synopsis:  "宇宙探偵もの",
			Count:     3,
			Reference: &domain.ImageAnalysis{StyleDescription: "thick ink", CharacterDescription: "silver bob hair"},
		})
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if !strings.Contains(got, "match this face and style exactly") || !strings.Contains(got, "silver bob hair") {
			t.Errorf("参照画像の制約が含まれていません:\n%s", got)
		}
	})

	t.Run("不明なモードはエラーになること", func(t *testing.T) {
		if _, err := pb.Build("unknown", TemplateData{}); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("期待値 ErrUnknownMode, 実際の値 %v", err)
		}
	})
}

func TestNewTextPromptBuilder(t *testing.T) {
	t.Run("埋め込みテンプレートが全モード分そろっていること", func(t *testing.T) {
		pb, err := NewTextPromptBuilder()
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		for _, mode := range []string{ModeSceneBatch, ModeCast, ModeImageAnalysis, ModeSceneImage} {
			if _, ok := pb.templates[mode]; !ok {
				t.Errorf("モード %q のテンプレートがありません", mode)
			}
		}
	})

	t.Run("空のテンプレートは初期化時にエラーになること", func(t *testing.T) {
		if _, err := newTextPromptBuilder(map[string]string{ModeCast: "  \n"}); err == nil {
			t.Error("空のテンプレートでエラーが発生しませんでした")
		}
	})

	t.Run("未定義のフィールドは生成時にエラーになること", func(t *testing.T) {
		pb, err := newTextPromptBuilder(map[string]string{"broken": "{{.Missing}}"})
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if _, err := pb.Build("broken", TemplateData{}); err == nil {
			t.Error("未定義のフィールドでエラーが発生しませんでした")
		}
	})

	t.Run("生成結果が空のプロンプトはエラーになること", func(t *testing.T) {
		pb, err := newTextPromptBuilder(map[string]string{"blank": "{{if .Synopsis}}{{.Synopsis}}{{end}}"})
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if _, err := pb.Build("blank", TemplateData{}); err == nil {
			t.Error("空のプロンプトでエラーが発生しませんでした")
		}
	})
}
