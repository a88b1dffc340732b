package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}
	return p
}

func TestLoadRunInput(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAMLを読み込めること", func(t *testing.T) {
		p := writeFile(t, dir, "run.yaml", []byte(`
title: Harbor
synopsis: A storm hits the harbor town.
scene_count: 25
batch_size: 5
characters:
  - name: Ren
    age: 30s
    description: yellow raincoat
  - name: ""
`))
		in, err := LoadRunInput(p)
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if in.Title != "Harbor" || in.SceneCount != 25 || in.BatchSize != 5 {
			t.Errorf("フィールドが正しく読み込まれていません: %+v", in)
		}
		if len(in.Characters) != 2 || in.Characters[0].Description != "yellow raincoat" {
			t.Errorf("キャラクターが正しく読み込まれていません: %+v", in.Characters)
		}
		if in.Reference != nil {
			t.Error("参照画像がないのに Reference が設定されています")
		}
	})

	t.Run("JSONと参照画像を読み込めること", func(t *testing.T) {
		png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
		writeFile(t, dir, "ref.png", png)
		p := writeFile(t, dir, "run.json", []byte(`{
  "synopsis": "Two kids build a raft.",
  "sceneCount": 8,
  "characters": [{"name": "Mio", "description": "straw hat"}],
  "referenceImage": "ref.png"
}`))
		in, err := LoadRunInput(p)
		if err != nil {
			t.Fatalf("予期しないエラーです: %v", err)
		}
		if in.SceneCount != 8 || in.Characters[0].Name != "Mio" {
			t.Errorf("フィールドが正しく読み込まれていません: %+v", in)
		}
		if in.Reference == nil || in.Reference.MimeType != "image/png" {
			t.Fatalf("参照画像が読み込まれていません: %+v", in.Reference)
		}
	})

	t.Run("画像でない参照はエラーになること", func(t *testing.T) {
		writeFile(t, dir, "notes.txt", []byte("just text"))
		p := writeFile(t, dir, "bad.yaml", []byte("synopsis: x\nreference_image: notes.txt\n"))
		if _, err := LoadRunInput(p); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("存在しないファイルはエラーになること", func(t *testing.T) {
		if _, err := LoadRunInput(filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})
}

func TestGenerateOptions_ApplyTo(t *testing.T) {
	in := storyboard.Input{Title: "orig", SceneCount: 10, AspectRatio: "16:9"}
	GenerateOptions{SceneCount: 30, AspectRatio: "9:16"}.ApplyTo(&in)

	if in.Title != "orig" {
		t.Errorf("未指定のフラグで値が上書きされました: %s", in.Title)
	}
	if in.SceneCount != 30 || in.AspectRatio != "9:16" {
		t.Errorf("フラグが反映されていません: %+v", in)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STORYBOARD_BATCH_SIZE", "7")
	t.Setenv("STORYBOARD_IMAGE_STORE", "MinIO")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := LoadConfig()
	if cfg.App.GeminiAPIKey != "test-key" {
		t.Errorf("期待値 'test-key', 実際の値 '%s'", cfg.App.GeminiAPIKey)
	}
	if cfg.App.BatchSize != 7 {
		t.Errorf("期待値 7, 実際の値 %d", cfg.App.BatchSize)
	}
	if cfg.ImageStore != "minio" || !cfg.MinIO.UseSSL {
		t.Errorf("ストレージ設定が正しくありません: %s / %v", cfg.ImageStore, cfg.MinIO.UseSSL)
	}

	t.Run("不正な数値はデフォルトに戻ること", func(t *testing.T) {
		t.Setenv("STORYBOARD_BATCH_SIZE", "many")
		if got := LoadConfig().App.BatchSize; got != 10 {
			t.Errorf("期待値 10, 実際の値 %d", got)
		}
	})

	t.Run("フラグの指定が優先されること", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.ApplyOptions(GenerateOptions{ImageModel: "custom-image", BatchSize: 3})
		if cfg.App.ImageModel != "custom-image" || cfg.App.BatchSize != 3 {
			t.Errorf("フラグが反映されていません: %+v", cfg.App)
		}
	})
}
