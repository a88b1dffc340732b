package generator

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestExcerpt(t *testing.T) {
	t.Run("短いレスポンスはそのまま返すこと", func(t *testing.T) {
		if got := excerpt(`{"characters":[]}`); got != `{"characters":[]}` {
			t.Errorf("期待値 そのまま, 実際の値 %q", got)
		}
	})

	t.Run("マルチバイト文字の途中で切らないこと", func(t *testing.T) {
		// 3バイト文字なので 200 バイト目は文字の途中になります。
		raw := strings.Repeat("あ", 100)
		got := excerpt(raw)
		if !utf8.ValidString(got) {
			t.Fatalf("不正な UTF-8 になっています: %q", got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("省略記号がありません: %q", got)
		}
		if body := strings.TrimSuffix(got, "..."); body != strings.Repeat("あ", 66) {
			t.Errorf("期待値 66文字, 実際の値 %d文字", utf8.RuneCountInString(body))
		}
	})

	t.Run("パースエラーの抜粋も有効な UTF-8 であること", func(t *testing.T) {
		_, err := parseScenes("前置き" + strings.Repeat("説明", 60))
		var perr *domain.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("期待値 ParseError, 実際の値 %v", err)
		}
		if !utf8.ValidString(perr.Excerpt) {
			t.Errorf("抜粋が不正な UTF-8 です: %q", perr.Excerpt)
		}
	})
}
