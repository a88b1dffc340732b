package provider

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/tidwall/gjson"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

var errInvalidJSON = errors.New("response does not contain valid JSON")

// ExtractJSON は AI の応答からコードフェンスや前置きを取り除き、妥当な JSON 部分を返します。
// 見つからない場合は *domain.ParseError を返します。
func ExtractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		if candidate := strings.TrimSpace(matches[1]); gjson.Valid(candidate) {
			return candidate, nil
		}
	}
	if gjson.Valid(raw) {
		return raw, nil
	}

	// 最も外側の配列、次にオブジェクトを探します。
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		first := strings.Index(raw, pair[0])
		last := strings.LastIndex(raw, pair[1])
		if first != -1 && last > first {
			if candidate := raw[first : last+1]; gjson.Valid(candidate) {
				return candidate, nil
			}
		}
	}

	return "", &domain.ParseError{Excerpt: truncateString(raw, 200), Err: errInvalidJSON}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
