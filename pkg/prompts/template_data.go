package prompts

import (
	_ "embed"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	ModeSceneBatch    = "scene_batch"
	ModeCast          = "cast"
	ModeImageAnalysis = "image_analysis"
	ModeSceneImage    = "scene_image"
)

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
// モードごとに使うフィールドだけを埋めます。
type TemplateData struct {
	Synopsis         string
	CharacterContext string
	StyleSuffix      string

	// scene_batch
	StartNumber    int
	EndNumber      int
	Count          int
	TotalCount     int
	PreviousNumber int
	PreviousAction string

	// cast
	Reference *domain.ImageAnalysis

	// scene_image
	Action            string
	ConsistentContext string
}

var (
	//go:embed templates/scene_batch.md
	SceneBatchPrompt string
	//go:embed templates/cast.md
	CastPrompt string
	//go:embed templates/image_analysis.md
	ImageAnalysisPrompt string
	//go:embed templates/scene_image.md
	SceneImagePrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップです。
var allTemplates = map[string]string{
	ModeSceneBatch:    SceneBatchPrompt,
	ModeCast:          CastPrompt,
	ModeImageAnalysis: ImageAnalysisPrompt,
	ModeSceneImage:    SceneImagePrompt,
}
