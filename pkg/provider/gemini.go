package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

const (
	defaultAnalysisExpiration = 30 * time.Minute
	analysisCleanupInterval   = time.Hour
)

// ContentGenerator はマルチモーダル入力を受け付ける genai のモデル呼び出しです。
// *genai.Models がこれを満たします。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions は GeminiProvider のモデル設定です。
type GeminiOptions struct {
	TextModel      string
	VisionModel    string
	NegativePrompt string
}

// GeminiProvider は Gemini を使って Capability を実装します。
type GeminiProvider struct {
	textClient    gemini.GenerativeModel
	imageGen      imagekit.ImageGenerator
	vision        ContentGenerator
	promptBuilder prompts.PromptBuilder
	opts          GeminiOptions

	analysisCache *cache.Cache
	analysisGroup singleflight.Group
}

// NewGeminiProvider は依存関係を注入して GeminiProvider を初期化します。
func NewGeminiProvider(
	textClient gemini.GenerativeModel,
	imageGen imagekit.ImageGenerator,
	vision ContentGenerator,
	pb prompts.PromptBuilder,
	opts GeminiOptions,
) *GeminiProvider {
	return &GeminiProvider{
		textClient:    textClient,
		imageGen:      imageGen,
		vision:        vision,
		promptBuilder: pb,
		opts:          opts,
		analysisCache: cache.New(defaultAnalysisExpiration, analysisCleanupInterval),
	}
}

// GenerateStructuredText はスキーマを指示に含めてテキストモデルを呼び出し、妥当な JSON を返します。
func (p *GeminiProvider) GenerateStructuredText(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	finalPrompt := prompt
	if schema != nil {
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("スキーマのシリアライズに失敗しました: %w", err)
		}
		finalPrompt = fmt.Sprintf("%s\n\nRespond with JSON only, matching this schema:\n%s", prompt, schemaJSON)
	}

	slog.DebugContext(ctx, "Calling Gemini text model", "model", p.opts.TextModel, "prompt_length", len(finalPrompt))
	resp, err := p.textClient.GenerateContent(ctx, finalPrompt, p.opts.TextModel)
	if err != nil {
		return "", &domain.ProviderError{Op: "generateStructuredText", Err: err}
	}

	return ExtractJSON(resp.Text)
}

// GenerateImage はプロンプトから画像を1枚生成します。
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string, aspectRatio string) (domain.Image, error) {
	startTime := time.Now()
	resp, err := p.imageGen.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         prompt,
		NegativePrompt: p.opts.NegativePrompt,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return domain.Image{}, &domain.ProviderError{Op: "generateImage", Err: err}
	}
	if resp == nil || len(resp.Data) == 0 {
		return domain.Image{}, &domain.ProviderError{Op: "generateImage", Err: errors.New("no image data in response")}
	}

	slog.DebugContext(ctx, "Image generated",
		"mime_type", resp.MimeType,
		"bytes", len(resp.Data),
		"duration", time.Since(startTime).Round(time.Millisecond))
	return domain.Image{Data: resp.Data, MimeType: resp.MimeType}, nil
}

// AnalyzeImage は参照画像を解析します。同じ画像の解析結果はキャッシュし、同時要求は1回の呼び出しにまとめます。
func (p *GeminiProvider) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (domain.ImageAnalysis, error) {
	if len(data) == 0 {
		return domain.ImageAnalysis{}, domain.NewValidationError("referenceImage", "image data is empty")
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	if cached, ok := p.analysisCache.Get(key); ok {
		if analysis, ok := cached.(domain.ImageAnalysis); ok {
			return analysis, nil
		}
	}

	val, err, _ := p.analysisGroup.Do(key, func() (interface{}, error) {
		if cached, ok := p.analysisCache.Get(key); ok {
			return cached, nil
		}

		analysis, err := p.analyze(ctx, data, mimeType)
		if err != nil {
			return nil, err
		}
		p.analysisCache.SetDefault(key, analysis)
		return analysis, nil
	})
	if err != nil {
		return domain.ImageAnalysis{}, err
	}

	analysis, ok := val.(domain.ImageAnalysis)
	if !ok {
		return domain.ImageAnalysis{}, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return analysis, nil
}

func (p *GeminiProvider) analyze(ctx context.Context, data []byte, mimeType string) (domain.ImageAnalysis, error) {
	instruction, err := p.promptBuilder.Build(prompts.ModeImageAnalysis, prompts.TemplateData{})
	if err != nil {
		return domain.ImageAnalysis{}, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ImageAnalysisSchema,
	}

	slog.InfoContext(ctx, "Analyzing reference image", "model", p.opts.VisionModel, "mime_type", mimeType)
	resp, err := p.vision.GenerateContent(ctx, p.opts.VisionModel, contents, config)
	if err != nil {
		return domain.ImageAnalysis{}, &domain.ProviderError{Op: "analyzeImage", Err: err}
	}
	if resp == nil {
		return domain.ImageAnalysis{}, &domain.ProviderError{Op: "analyzeImage", Err: errors.New("empty response")}
	}

	raw, err := ExtractJSON(resp.Text())
	if err != nil {
		return domain.ImageAnalysis{}, err
	}
	return domain.ImageAnalysis{
		StyleDescription:     gjson.Get(raw, "styleDescription").String(),
		CharacterDescription: gjson.Get(raw, "characterDescription").String(),
	}, nil
}
