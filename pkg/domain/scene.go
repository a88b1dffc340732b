package domain

import "sort"

// SceneDraft は台本生成で得られる1シーン分の構成です。
type SceneDraft struct {
	SceneNumber       int    `json:"sceneNumber"`
	Action            string `json:"action"`
	ConsistentContext string `json:"consistentContext"` // 前後のシーンと共有する背景・衣装・照明などの描写
	FullPrompt        string `json:"fullPrompt"`        // 画像生成にそのまま渡すプロンプト
}

// SceneError はシーン単位の失敗を、表示と再試行判断のために保持します。
type SceneError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// RenderedScene は画像描画の状態を含むシーンです。
type RenderedScene struct {
	SceneDraft
	ImageURL  string      `json:"imageUrl,omitempty"`
	IsLoading bool        `json:"isLoading"`
	LastError *SceneError `json:"lastError,omitempty"`
}

// HasImage は画像が描画済みかどうかを返します。
func (s RenderedScene) HasImage() bool {
	return s.ImageURL != ""
}

// Scenes は描画対象のシーン列です。
type Scenes []RenderedScene

// SeedScenes は台本から描画前のシーン列を作ります。
func SeedScenes(drafts []SceneDraft) Scenes {
	scenes := make(Scenes, len(drafts))
	for i, d := range drafts {
		scenes[i] = RenderedScene{SceneDraft: d}
	}
	return scenes
}

// Copy はシーン列のコピーを返します。LastError も複製します。
func (s Scenes) Copy() Scenes {
	if s == nil {
		return nil
	}
	copied := make(Scenes, len(s))
	for i, sc := range s {
		if sc.LastError != nil {
			e := *sc.LastError
			sc.LastError = &e
		}
		copied[i] = sc
	}
	return copied
}

// Index はシーン番号に対応するスライス上の位置を返します。見つからない場合は -1 です。
func (s Scenes) Index(sceneNumber int) int {
	for i, sc := range s {
		if sc.SceneNumber == sceneNumber {
			return i
		}
	}
	return -1
}

// Pending は画像が未描画のシーンの位置を、シーン番号の昇順で返します。
func (s Scenes) Pending() []int {
	var idx []int
	for i, sc := range s {
		if !sc.HasImage() {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s[idx[a]].SceneNumber < s[idx[b]].SceneNumber
	})
	return idx
}

// RenderedCount は画像が描画済みのシーン数を返します。
func (s Scenes) RenderedCount() int {
	n := 0
	for _, sc := range s {
		if sc.HasImage() {
			n++
		}
	}
	return n
}

// SortByNumber はシーン番号の昇順に並べ替えます。
func (s Scenes) SortByNumber() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].SceneNumber < s[j].SceneNumber
	})
}
