package generator

const (
	// DefaultBatchSize は1回の台本生成リクエストで要求するシーン数の既定値です。
	DefaultBatchSize = 10
	// MaxCastSize は1回のキャスト生成で要求できる最大人数です。
	MaxCastSize = 6
	// DefaultAspectRatio はシーン画像の推奨アスペクト比です。
	DefaultAspectRatio = "16:9"
)
