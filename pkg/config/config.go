package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultGeminiModel    = "gemini-3-flash-preview"
	DefaultImageModel     = "gemini-3-pro-image-preview"
	DefaultVisionModel    = "gemini-3-flash-preview"
	DefaultTemperature    = float32(0.7)
	DefaultAspectRatio    = "16:9"
	DefaultBatchSize      = 10
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultBatchDelay     = time.Second
	DefaultRateInterval   = 10 * time.Second
	DefaultRequestTimeout = 5 * time.Minute
	DefaultNegativePrompt = "text, watermark, speech bubble, caption, signature, blurry, deformed hands"
	DefaultStyleSuffix    = "cinematic storyboard frame, consistent character design, clean composition, soft natural lighting, film still, high detail"
)

// Config はストーリーボード生成の各コンポーネントを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string
	GeminiModel  string  // 台本・キャスト生成用
	ImageModel   string  // シーン画像生成用
	VisionModel  string  // 参照画像の解析用
	Temperature  float32 // テキスト生成の温度

	// --- Generation Settings ---
	StyleSuffix    string
	NegativePrompt string
	AspectRatio    string
	BatchSize      int
	BatchDelay     time.Duration // 台本バッチ間の待機
	RateInterval   time.Duration // 画像生成の最小間隔

	// --- Timeout & Retries ---
	MaxAttempts    int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel:    DefaultGeminiModel,
		ImageModel:     DefaultImageModel,
		VisionModel:    DefaultVisionModel,
		Temperature:    DefaultTemperature,
		StyleSuffix:    DefaultStyleSuffix,
		NegativePrompt: DefaultNegativePrompt,
		AspectRatio:    DefaultAspectRatio,
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
		RateInterval:   DefaultRateInterval,
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// NewConfig はデフォルト値に API キーだけを設定した Config を返します。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}
