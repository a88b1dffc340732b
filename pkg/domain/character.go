package domain

import (
	"fmt"
	"strings"
)

// CharacterProfile はストーリーボードに登場するキャラクターの定義を保持します。
type CharacterProfile struct {
	Name        string `json:"name" yaml:"name"`
	Gender      string `json:"gender" yaml:"gender"`
	Age         string `json:"age" yaml:"age"`
	Description string `json:"description" yaml:"description"` // 外見・服装など、画像プロンプトに注入する視覚的特徴
}

// IsComplete は生成に必要な必須項目（名前と外見の説明）が揃っているかを返します。
func (c CharacterProfile) IsComplete() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Description) != ""
}

// IsEmpty はユーザーが何も入力していない空きスロットかどうかを返します。
func (c CharacterProfile) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.Gender) == "" &&
		strings.TrimSpace(c.Age) == "" &&
		strings.TrimSpace(c.Description) == ""
}

// String はキャラクターの情報をプロンプト向けの1行で返します。
func (c CharacterProfile) String() string {
	var attrs []string
	if c.Gender != "" {
		attrs = append(attrs, c.Gender)
	}
	if c.Age != "" {
		attrs = append(attrs, c.Age)
	}
	if len(attrs) == 0 {
		return fmt.Sprintf("%s: %s", c.Name, c.Description)
	}
	return fmt.Sprintf("%s (%s): %s", c.Name, strings.Join(attrs, ", "), c.Description)
}

// Cast はキャラクタースロットの並びです。
type Cast []CharacterProfile

// Copy はスライスのコピーを返します。
// プロンプト構築時に呼び出し元の編集が混入しないよう、必ずコピーを渡します。
func (c Cast) Copy() Cast {
	if c == nil {
		return nil
	}
	copied := make(Cast, len(c))
	copy(copied, c)
	return copied
}

// Complete は必須項目が揃ったキャラクターだけを順序を保って返します。
func (c Cast) Complete() Cast {
	var out Cast
	for _, p := range c {
		if p.IsComplete() {
			out = append(out, p)
		}
	}
	return out
}

// HasComplete は1人以上の完成したキャラクターがいるかを返します。
func (c Cast) HasComplete() bool {
	for _, p := range c {
		if p.IsComplete() {
			return true
		}
	}
	return false
}

// NeedsFill は生成で埋めるべき未完成スロットがあるかを返します。
func (c Cast) NeedsFill() bool {
	for _, p := range c {
		if !p.IsComplete() {
			return true
		}
	}
	return false
}

// CharacterContext は完成したキャラクターを、一貫性維持の指示としてプロンプトに埋め込む文字列に変換します。
func (c Cast) CharacterContext() string {
	var sb strings.Builder
	for _, p := range c.Complete() {
		sb.WriteString("- ")
		sb.WriteString(p.String())
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
