package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/provider"
	"github.com/shouni/go-storyboard-kit/pkg/retry"
)

// CastBuilder はあらすじからキャラクターを生成します。
type CastBuilder struct {
	text          provider.TextGenerator
	analyzer      provider.ImageAnalyzer
	promptBuilder prompts.PromptBuilder
	retry         retry.Policy
}

// NewCastBuilder は依存関係を注入して CastBuilder を初期化します。
func NewCastBuilder(text provider.TextGenerator, analyzer provider.ImageAnalyzer, pb prompts.PromptBuilder, policy retry.Policy) *CastBuilder {
	return &CastBuilder{
		text:          text,
		analyzer:      analyzer,
		promptBuilder: pb,
		retry:         policy,
	}
}

// BuildCast は req.Count 人のキャラクターを1回の呼び出しで生成します。
// 参照画像があれば先に解析し、その結果を外見の拘束条件としてプロンプトに含めます。
// 返り値は常に req.Count 件で、生成されなかったスロットは空のプロフィールになります。
func (b *CastBuilder) BuildCast(ctx context.Context, req CastRequest) (domain.Cast, error) {
	if req.Topic == "" {
		return nil, domain.NewValidationError("synopsis", "synopsis or topic is required")
	}
	if req.Count < 1 || req.Count > MaxCastSize {
		return nil, domain.NewValidationError("castCount", fmt.Sprintf("cast count must be between 1 and %d", MaxCastSize))
	}

	data := prompts.TemplateData{Synopsis: req.Topic, Count: req.Count}

	if req.Reference != nil && len(req.Reference.Data) > 0 {
		ref := req.Reference
		analysis, err := retry.Do(ctx, b.retry, func(ctx context.Context) (domain.ImageAnalysis, error) {
			return b.analyzer.AnalyzeImage(ctx, ref.Data, ref.MimeType)
		})
		if err != nil {
			return nil, fmt.Errorf("参照画像の解析に失敗しました: %w", err)
		}
		data.Reference = &analysis
	}

	prompt, err := b.promptBuilder.Build(prompts.ModeCast, data)
	if err != nil {
		return nil, fmt.Errorf("プロンプト生成に失敗: %w", err)
	}

	slog.InfoContext(ctx, "Requesting cast", "count", req.Count, "with_reference", data.Reference != nil)
	cast, err := retry.Do(ctx, b.retry, func(ctx context.Context) (domain.Cast, error) {
		raw, err := b.text.GenerateStructuredText(ctx, prompt, provider.CastSchema)
		if err != nil {
			return nil, err
		}
		return parseCast(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("キャスト生成に失敗しました: %w", err)
	}

	if len(cast) < req.Count {
		slog.WarnContext(ctx, "Provider returned fewer characters than requested",
			"requested", req.Count, "received", len(cast))
	}
	return domain.PadCast(cast, req.Count), nil
}
