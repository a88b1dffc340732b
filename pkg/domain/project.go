package domain

import "time"

// ProjectData は保存されるプロジェクトの中身です。
type ProjectData struct {
	Synopsis    string `json:"synopsis"`
	Characters  Cast   `json:"characters"`
	Scenes      Scenes `json:"scenes"`
	SceneCount  int    `json:"sceneCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ProjectSnapshot は履歴一覧に先頭追加されるプロジェクトの保存形式です。
type ProjectSnapshot struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Tool      string      `json:"tool"`
	Category  string      `json:"category"`
	Title     string      `json:"title"`
	Data      ProjectData `json:"data"`
}

// Image は生成された画像のバイト列と MIME タイプです。
type Image struct {
	Data     []byte
	MimeType string
}

// ReferenceImage はキャスト生成で外見やスタイルを合わせるための参照画像です。
type ReferenceImage struct {
	Data     []byte
	MimeType string
}

// ImageAnalysis は参照画像の解析結果です。
type ImageAnalysis struct {
	StyleDescription     string `json:"styleDescription"`
	CharacterDescription string `json:"characterDescription"`
}
