package provider

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"google.golang.org/genai"
)

// TextGenerator は構造化テキスト（JSON）を生成する責務を持ちます。
// 返り値は構文的に妥当な JSON 文字列です。件数やフィールドの有無は保証しないため、呼び出し側で再検証します。
type TextGenerator interface {
	GenerateStructuredText(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// ImageRenderer はプロンプトから画像を1枚生成する責務を持ちます。
type ImageRenderer interface {
	GenerateImage(ctx context.Context, prompt string, aspectRatio string) (domain.Image, error)
}

// ImageAnalyzer は参照画像からスタイルと人物の特徴を抽出する責務を持ちます。
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (domain.ImageAnalysis, error)
}

// Capability はストーリーボード生成に必要な生成プロバイダの境界です。
type Capability interface {
	TextGenerator
	ImageRenderer
	ImageAnalyzer
}
