package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	appcfg "github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/storage"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultOutputDir   = "output"
	DefaultHistoryFile = "output/history.json"
	DefaultPort        = "8080"
	DefaultTool        = "storyboard"
	DefaultCategory    = "video"
)

// Config はアプリケーション全体の環境設定（APIキーやストレージ設定）を保持する構造体なのだ。
type Config struct {
	App appcfg.Config

	ImageStore  string // dataurl | local | minio
	OutputDir   string
	BaseURL     string // local ストアの画像を配信する URL の接頭辞
	MinIO       storage.MinIOConfig
	HistoryFile string
	Port        string

	Options GenerateOptions
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	InputFile      string // --input
	Title          string // --title
	SceneCount     int    // --scenes: 0 なら入力ファイルの値
	BatchSize      int    // --batch-size
	AspectRatio    string // --aspect-ratio
	ReferenceImage string // --reference
	RegenerateCast bool   // --regenerate-cast
	CastCount      int    // --count: cast コマンド用

	AIModel    string // --model
	ImageModel string // --image-model

	Verbose bool // --verbose
}

// LoadConfig は .env と環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	app := appcfg.DefaultConfig()
	app.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", "")
	app.GeminiModel = envutil.GetEnv("GEMINI_MODEL", appcfg.DefaultGeminiModel)
	app.ImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", appcfg.DefaultImageModel)
	app.VisionModel = envutil.GetEnv("VISION_GEMINI_MODEL", appcfg.DefaultVisionModel)
	app.StyleSuffix = envutil.GetEnv("STYLE_SUFFIX", appcfg.DefaultStyleSuffix)
	app.BatchSize = envInt("STORYBOARD_BATCH_SIZE", appcfg.DefaultBatchSize)

	outputDir := envutil.GetEnv("STORYBOARD_OUTPUT_DIR", DefaultOutputDir)
	return &Config{
		App:        app,
		ImageStore: strings.ToLower(envutil.GetEnv("STORYBOARD_IMAGE_STORE", storage.BackendLocal)),
		OutputDir:  outputDir,
		BaseURL:    envutil.GetEnv("STORYBOARD_BASE_URL", ""),
		MinIO: storage.MinIOConfig{
			Endpoint:  envutil.GetEnv("MINIO_ENDPOINT", ""),
			AccessKey: envutil.GetEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: envutil.GetEnv("MINIO_SECRET_KEY", ""),
			Bucket:    envutil.GetEnv("MINIO_BUCKET", ""),
			Prefix:    envutil.GetEnv("MINIO_PREFIX", ""),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		HistoryFile: envutil.GetEnv("STORYBOARD_HISTORY_FILE", DefaultHistoryFile),
		Port:        envutil.GetEnv("PORT", DefaultPort),
	}
}

// ApplyOptions は CLI フラグの指定を設定に反映するのだ。空のフラグは環境変数の値を残すのだ。
func (c *Config) ApplyOptions(opts GenerateOptions) {
	c.Options = opts
	if opts.AIModel != "" {
		c.App.GeminiModel = opts.AIModel
	}
	if opts.ImageModel != "" {
		c.App.ImageModel = opts.ImageModel
	}
	if opts.BatchSize > 0 {
		c.App.BatchSize = opts.BatchSize
	}
	if opts.AspectRatio != "" {
		c.App.AspectRatio = opts.AspectRatio
	}
}

func envInt(key string, fallback int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("Ignoring invalid integer environment variable", "key", key, "value", raw)
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring invalid boolean environment variable", "key", key, "value", raw)
		return fallback
	}
	return v
}
