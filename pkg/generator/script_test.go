package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/retry"

	"google.golang.org/genai"
)

// fakeText は呼び出しごとに respond の結果を返すテスト用プロバイダです。
type fakeText struct {
	calls   int
	prompts []string
	respond func(call int, prompt string) (string, error)
}

func (f *fakeText) GenerateStructuredText(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.respond(f.calls, prompt)
}

// scenesJSON は n 件のシーンを、わざとずれた番号で返します。
func scenesJSON(n, bogusStart int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"sceneNumber": %d, "action": "action %d", "consistentContext": "ctx", "fullPrompt": "prompt %d"}`, bogusStart+i, i, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func newTestScriptGenerator(t *testing.T, text *fakeText) *ScriptGenerator {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("ビルダーの初期化に失敗しました: %v", err)
	}
	return NewScriptGenerator(text, pb, ScriptOptions{
		Retry:       retry.Policy{MaxAttempts: 3},
		StyleSuffix: "watercolor",
	})
}

var testCast = domain.Cast{{Name: "ミナ", Description: "red scarf"}}

func TestGenerateScenesInBatches_Numbering(t *testing.T) {
	cases := []struct{ total, batchSize int }{
		{1, 10}, {10, 10}, {11, 10}, {25, 10}, {7, 3}, {50, 10},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("total=%d,batch=%d で1からの通し番号になること", c.total, c.batchSize), func(t *testing.T) {
			text := &fakeText{respond: func(call int, prompt string) (string, error) {
				// 要求より多い件数と無関係な番号を返しても正規化されること
				return scenesJSON(c.batchSize+2, 100), nil
			}}
			g := newTestScriptGenerator(t, text)

			scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
				Synopsis: "story", Characters: testCast, TotalCount: c.total, BatchSize: c.batchSize,
			}, nil, nil)
			if err != nil {
				t.Fatalf("予期しないエラーです: %v", err)
			}
			if len(scenes) != c.total {
				t.Fatalf("期待値 %d件, 実際の値 %d件", c.total, len(scenes))
			}
			for i, s := range scenes {
				if s.SceneNumber != i+1 {
					t.Fatalf("%d番目のシーン番号が %d です", i, s.SceneNumber)
				}
			}
			wantBatches := (c.total + c.batchSize - 1) / c.batchSize
			if text.calls != wantBatches {
				t.Errorf("期待値 %d回, 実際の値 %d回", wantBatches, text.calls)
			}
		})
	}
}

func TestGenerateScenesInBatches_ShortBatch(t *testing.T) {
	text := &fakeText{respond: func(call int, prompt string) (string, error) {
		if call == 1 {
			return scenesJSON(7, 1), nil
		}
		return scenesJSON(10, 1), nil
	}}
	g := newTestScriptGenerator(t, text)

	scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
		Synopsis: "story", Characters: testCast, TotalCount: 20, BatchSize: 10,
	}, nil, nil)
	if err != nil {
		t.Fatalf("短いバッチで失敗しました: %v", err)
	}

	seen := map[int]bool{}
	for i, s := range scenes {
		if seen[s.SceneNumber] {
			t.Fatalf("シーン番号 %d が重複しています", s.SceneNumber)
		}
		seen[s.SceneNumber] = true
		if s.SceneNumber != i+1 {
			t.Fatalf("シーン番号が飛んでいます: 位置 %d に %d", i, s.SceneNumber)
		}
	}
	if len(scenes) != 17 {
		t.Errorf("期待値 17件, 実際の値 %d件", len(scenes))
	}
	if !strings.Contains(text.prompts[1], "numbered 8 to 17") {
		t.Errorf("2番目のバッチが続きの番号から始まっていません:\n%s", text.prompts[1])
	}
}

func TestGenerateScenesInBatches_Cancel(t *testing.T) {
	t.Run("開始前のキャンセルでは0件でプロバイダを呼ばないこと", func(t *testing.T) {
		text := &fakeText{respond: func(int, string) (string, error) { return scenesJSON(10, 1), nil }}
		g := newTestScriptGenerator(t, text)
		token := domain.NewCancelToken()
		token.Cancel()

		scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
			Synopsis: "story", Characters: testCast, TotalCount: 50, BatchSize: 10,
		}, token, nil)
		if !errors.Is(err, domain.ErrCancelled) {
			t.Fatalf("期待値 ErrCancelled, 実際の値 %v", err)
		}
		if len(scenes) != 0 || text.calls != 0 {
			t.Errorf("期待値 0件・0回, 実際の値 %d件・%d回", len(scenes), text.calls)
		}
	})

	t.Run("5バッチ中2バッチ後のキャンセルでは20件で以降の呼び出しがないこと", func(t *testing.T) {
		text := &fakeText{respond: func(int, string) (string, error) { return scenesJSON(10, 1), nil }}
		g := newTestScriptGenerator(t, text)
		token := domain.NewCancelToken()

		var progress []int
		scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
			Synopsis: "story", Characters: testCast, TotalCount: 50, BatchSize: 10,
		}, token, func(done, total int) {
			progress = append(progress, done)
			if done == 2 {
				token.Cancel()
			}
		})
		if !errors.Is(err, domain.ErrCancelled) {
			t.Fatalf("期待値 ErrCancelled, 実際の値 %v", err)
		}
		if len(scenes) != 20 {
			t.Errorf("期待値 20件, 実際の値 %d件", len(scenes))
		}
		if text.calls != 2 {
			t.Errorf("期待値 2回, 実際の値 %d回", text.calls)
		}
		if len(progress) != 2 {
			t.Errorf("進捗通知の回数が正しくありません: %v", progress)
		}
	})
}

func TestGenerateScenesInBatches_Failure(t *testing.T) {
	t.Run("バッチがリトライ上限に達すると部分的な台本を返さないこと", func(t *testing.T) {
		text := &fakeText{respond: func(call int, prompt string) (string, error) {
			if call == 1 {
				return scenesJSON(10, 1), nil
			}
			return "", &domain.ProviderError{Op: "generateStructuredText", Err: errors.New("503")}
		}}
		g := newTestScriptGenerator(t, text)

		scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
			Synopsis: "story", Characters: testCast, TotalCount: 30, BatchSize: 10,
		}, nil, nil)
		var exhausted *retry.ExhaustedRetriesError
		if !errors.As(err, &exhausted) {
			t.Fatalf("ExhaustedRetriesError ではありません: %v", err)
		}
		if scenes != nil {
			t.Errorf("部分的な台本が返されました: %d件", len(scenes))
		}
		if text.calls != 4 {
			t.Errorf("期待値 4回 (成功1 + 失敗3), 実際の値 %d回", text.calls)
		}
	})

	t.Run("不正なJSONはリトライされること", func(t *testing.T) {
		text := &fakeText{respond: func(call int, prompt string) (string, error) {
			if call == 1 {
				return `{"message": "sorry"}`, nil
			}
			return scenesJSON(3, 1), nil
		}}
		g := newTestScriptGenerator(t, text)

		scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
			Synopsis: "story", Characters: testCast, TotalCount: 3,
		}, nil, nil)
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if len(scenes) != 3 || text.calls != 2 {
			t.Errorf("期待値 3件・2回, 実際の値 %d件・%d回", len(scenes), text.calls)
		}
	})

	t.Run("入力不備はプロバイダを呼ばずにValidationErrorになること", func(t *testing.T) {
		text := &fakeText{respond: func(int, string) (string, error) { return "[]", nil }}
		g := newTestScriptGenerator(t, text)

		_, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{TotalCount: 3}, nil, nil)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) || text.calls != 0 {
			t.Errorf("期待値 ValidationError・0回, 実際の値 %v・%d回", err, text.calls)
		}
	})
}

func TestGenerateScenesInBatches_FallbackPrompt(t *testing.T) {
	text := &fakeText{respond: func(int, string) (string, error) {
		return `{"scenes": [{"scene_number": 1, "action": "ミナが走る", "consistent_context": "夕暮れの港"}]}`, nil
	}}
	g := newTestScriptGenerator(t, text)

	scenes, err := g.GenerateScenesInBatches(context.Background(), ScriptRequest{
		Synopsis: "story", Characters: testCast, TotalCount: 1,
	}, nil, nil)
	if err != nil {
		t.Fatalf("予期しないエラーです: %v", err)
	}
	got := scenes[0].FullPrompt
	for _, want := range []string{"ミナが走る", "夕暮れの港", "red scarf", "watercolor"} {
		if !strings.Contains(got, want) {
			t.Errorf("組み立てたプロンプトに %q が含まれていません: %q", want, got)
		}
	}
}
