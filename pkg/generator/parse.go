package generator

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/tidwall/gjson"
)

var (
	errNoSceneArray = errors.New("no scene array found in response")
	errNoScenes     = errors.New("scene array is empty")
	errNoCastArray  = errors.New("no character array found in response")
)

// parseScenes はモデルの JSON からシーンを取り出します。
// ルートが配列でない場合は "scenes" キー、それもなければ最初に見つかった配列を使います。
// 件数と番号はここでは信用せず、normalizeBatch で付け直します。
func parseScenes(raw string) ([]domain.SceneDraft, error) {
	arr := findArray(gjson.Parse(raw), "scenes")
	if !arr.IsArray() {
		return nil, &domain.ParseError{Excerpt: excerpt(raw), Err: errNoSceneArray}
	}

	var scenes []domain.SceneDraft
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		scenes = append(scenes, domain.SceneDraft{
			SceneNumber:       int(firstOf(v, "sceneNumber", "scene_number", "number").Int()),
			Action:            strings.TrimSpace(firstOf(v, "action", "description").String()),
			ConsistentContext: strings.TrimSpace(firstOf(v, "consistentContext", "consistent_context", "context").String()),
			FullPrompt:        strings.TrimSpace(firstOf(v, "fullPrompt", "full_prompt", "prompt").String()),
		})
		return true
	})
	if len(scenes) == 0 {
		return nil, &domain.ParseError{Excerpt: excerpt(raw), Err: errNoScenes}
	}
	return scenes, nil
}

// parseCast はモデルの JSON からキャラクターを順序どおりに取り出します。
func parseCast(raw string) (domain.Cast, error) {
	arr := findArray(gjson.Parse(raw), "characters")
	if !arr.IsArray() {
		return nil, &domain.ParseError{Excerpt: excerpt(raw), Err: errNoCastArray}
	}

	var cast domain.Cast
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		cast = append(cast, domain.CharacterProfile{
			Name:        strings.TrimSpace(v.Get("name").String()),
			Gender:      strings.TrimSpace(v.Get("gender").String()),
			Age:         strings.TrimSpace(v.Get("age").String()),
			Description: strings.TrimSpace(firstOf(v, "description", "appearance").String()),
		})
		return true
	})
	return cast, nil
}

func findArray(root gjson.Result, key string) gjson.Result {
	if root.IsArray() {
		return root
	}
	if !root.IsObject() {
		return gjson.Result{}
	}
	if named := root.Get(key); named.IsArray() {
		return named
	}

	var found gjson.Result
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() {
			found = v
			return false
		}
		return true
	})
	return found
}

func firstOf(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// excerpt はエラー表示用にレスポンスの先頭を切り出します。マルチバイト文字の途中では切りません。
func excerpt(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
