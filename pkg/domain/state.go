package domain

import "sync/atomic"

// RunStatus はオーケストレーターの状態です。
type RunStatus string

const (
	StatusIdle            RunStatus = "Idle"
	StatusBuildingCast    RunStatus = "BuildingCast"
	StatusWritingScript   RunStatus = "WritingScript"
	StatusRenderingImages RunStatus = "RenderingImages"
	StatusDone            RunStatus = "Done"
	StatusCancelled       RunStatus = "Cancelled"
	StatusFailed          RunStatus = "Failed"
)

// IsActive はランが進行中（終端でもアイドルでもない）かどうかを返します。
func (s RunStatus) IsActive() bool {
	switch s {
	case StatusBuildingCast, StatusWritingScript, StatusRenderingImages:
		return true
	}
	return false
}

// IsTerminal はランが終了した状態かどうかを返します。
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// CanTransition は状態遷移が許可されているかを返します。
// Failed はキャスト生成と台本生成からのみ、Cancelled は非終端状態からのみ到達できます。
func (s RunStatus) CanTransition(to RunStatus) bool {
	switch to {
	case StatusCancelled:
		return !s.IsTerminal()
	case StatusFailed:
		return s == StatusBuildingCast || s == StatusWritingScript
	case StatusBuildingCast:
		return s == StatusIdle || s.IsTerminal()
	case StatusWritingScript:
		return s == StatusBuildingCast
	case StatusRenderingImages:
		// スナップショットからの再開ではキャスト生成と台本生成を飛ばします。
		return s == StatusWritingScript || s == StatusIdle || s.IsTerminal()
	case StatusDone:
		return s == StatusRenderingImages || s == StatusIdle || s.IsTerminal()
	}
	return false
}

// RunState はプレゼンテーション層が観測する唯一の状態です。
type RunState struct {
	RunID           string    `json:"runId"`
	Status          RunStatus `json:"status"`
	ProgressPercent int       `json:"progressPercent"`
	Scenes          Scenes    `json:"scenes"`
	Characters      Cast      `json:"characters"`
	Error           string    `json:"error,omitempty"` // Failed 時のラン全体のエラー
}

// Clone は観測者に渡すためのディープコピーを返します。
func (s RunState) Clone() RunState {
	s.Scenes = s.Scenes.Copy()
	s.Characters = s.Characters.Copy()
	return s
}

// CancelToken はランごとに1つ持つ協調的キャンセルのフラグです。
// 確認されるのはバッチとシーンの境界だけで、進行中の呼び出しは中断しません。
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken は CancelToken を生成します。
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel はキャンセルを要求します。何度呼んでも安全です。
func (t *CancelToken) Cancel() {
	if t != nil {
		t.flag.Store(true)
	}
}

// Cancelled はキャンセルが要求済みかを返します。nil のトークンは常に false です。
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}
