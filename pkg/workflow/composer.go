package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/provider"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"
)

// buildGeminiProvider は設定から Gemini の各クライアントを初期化し、GeminiProvider にまとめます。
func buildGeminiProvider(ctx context.Context, cfg config.Config, httpClient httpkit.ClientInterface, pb prompts.PromptBuilder) (*provider.GeminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY が設定されていません")
	}

	aiClient, err := initializeAIClient(ctx, cfg.GeminiAPIKey, cfg.Temperature)
	if err != nil {
		return nil, err
	}

	core, err := initializeCore(httpClient, aiClient)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}
	imageGenerator, err := initializeImageGenerator(cfg.ImageModel, core)
	if err != nil {
		return nil, fmt.Errorf("ImageGenerator の初期化に失敗しました: %w", err)
	}

	vision, err := initializeVisionClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	return provider.NewGeminiProvider(aiClient, imageGenerator, vision, pb, provider.GeminiOptions{
		TextModel:      cfg.GeminiModel,
		VisionModel:    cfg.VisionModel,
		NegativePrompt: cfg.NegativePrompt,
	}), nil
}

// initializeAIClient は台本とキャスト生成に使う gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeVisionClient は参照画像の解析に使う genai のモデルクライアントを初期化します。
func initializeVisionClient(ctx context.Context, apiKey string) (provider.ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return client.Models, nil
}

// initializeImageGenerator は、画像キャッシュを含む ImageGenerator を初期化します。
func initializeImageGenerator(model string, core *imagekit.GeminiImageCore) (imagekit.ImageGenerator, error) {
	return imagekit.NewGeminiGenerator(
		model,
		core,
	)
}

// initializeCore は GeminiImageCore を初期化して返します。
// 参照画像はバイト列で渡すため、リモート入力のリーダーは使いません。
func initializeCore(httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel) (*imagekit.GeminiImageCore, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		nil,
		httpClient,
		imgCache,
		defaultTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	return core, nil
}
