package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"gopkg.in/yaml.v3"
)

// RunFile は run コマンドに渡す入力ファイルの形式なのだ。YAML と JSON の両方を受け付けるのだ。
type RunFile struct {
	storyboard.Input `yaml:",inline"`
	ReferenceImage   string `json:"referenceImage,omitempty" yaml:"reference_image"`
}

// LoadRunInput は入力ファイルを読み込み、ランの入力に変換するのだ。
// 拡張子が .json なら JSON、それ以外は YAML として解釈するのだ。
func LoadRunInput(path string) (storyboard.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storyboard.Input{}, fmt.Errorf("入力ファイル '%s' の読み込みに失敗しました: %w", path, err)
	}

	var rf RunFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &rf)
	} else {
		err = yaml.Unmarshal(data, &rf)
	}
	if err != nil {
		return storyboard.Input{}, fmt.Errorf("入力ファイル '%s' の解析に失敗しました: %w", path, err)
	}

	in := rf.Input
	if rf.ReferenceImage != "" {
		ref := rf.ReferenceImage
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(filepath.Dir(path), ref)
		}
		in.Reference, err = LoadReferenceImage(ref)
		if err != nil {
			return storyboard.Input{}, err
		}
	}
	return in, nil
}

// LoadReferenceImage は参照画像を読み込み、MIME タイプを判定するのだ。
func LoadReferenceImage(path string) (*domain.ReferenceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("参照画像 '%s' の読み込みに失敗しました: %w", path, err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("参照画像 '%s' は画像ではありません: %s", path, mimeType)
	}
	return &domain.ReferenceImage{Data: data, MimeType: mimeType}, nil
}

// ApplyTo はフラグの指定を入力に上書きするのだ。
func (o GenerateOptions) ApplyTo(in *storyboard.Input) {
	if o.Title != "" {
		in.Title = o.Title
	}
	if o.SceneCount > 0 {
		in.SceneCount = o.SceneCount
	}
	if o.BatchSize > 0 {
		in.BatchSize = o.BatchSize
	}
	if o.AspectRatio != "" {
		in.AspectRatio = o.AspectRatio
	}
	if o.RegenerateCast {
		in.RegenerateCast = true
	}
}
