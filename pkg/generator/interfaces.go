package generator

import "github.com/shouni/go-storyboard-kit/pkg/domain"

// ProgressFunc は完了したバッチ数と総バッチ数を受け取ります。
type ProgressFunc func(done, total int)

// ScriptRequest はバッチ台本生成の入力です。
type ScriptRequest struct {
	Synopsis   string
	Characters domain.Cast
	TotalCount int
	BatchSize  int
}

// CastRequest はキャスト生成の入力です。
type CastRequest struct {
	Topic     string
	Count     int
	Reference *domain.ReferenceImage
}
