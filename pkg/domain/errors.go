package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類です。シーンの lastError や API レスポンスに載せます。
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindProvider         ErrorKind = "provider"
	KindParse            ErrorKind = "parse"
	KindExhaustedRetries ErrorKind = "exhausted_retries"
	KindStorage          ErrorKind = "storage"
	KindCancelled        ErrorKind = "cancelled"
	KindUnknown          ErrorKind = "unknown"
)

var (
	// ErrCancelled は協調的キャンセルによる早期終了を表します。失敗ではありません。
	ErrCancelled = errors.New("run cancelled")
	// ErrRunActive は実行中のランと衝突する操作が要求されたことを表します。
	ErrRunActive = errors.New("a run is already active")
	// ErrSceneBusy は同じシーンの描画が既に進行中であることを表します。
	ErrSceneBusy = errors.New("scene is already rendering")
	// ErrSceneNotFound は指定されたシーン番号が存在しないことを表します。
	ErrSceneNotFound = errors.New("scene not found")
	// ErrNotRegenerable は現在の状態ではシーンの再生成ができないことを表します。
	ErrNotRegenerable = errors.New("scene regeneration is not allowed in the current state")
)

// ValidationError は入力の不備です。プロバイダには到達しません。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError は ValidationError を生成します。
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ProviderError は生成プロバイダへの単一呼び出しの失敗です。
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError は構造化レスポンスが期待した形で解釈できなかったことを表します。
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("failed to parse structured response: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse structured response (excerpt: %q): %v", e.Excerpt, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError は生成済み画像の保存失敗です。
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store image %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// exhausted はリトライ上限到達エラーが満たすインターフェースです。
// retry パッケージへの依存を避けるため、振る舞いで判定します。
type exhausted interface {
	ExhaustedRetries() bool
}

// IsCancelled は協調的キャンセル、またはコンテキストのキャンセルかどうかを返します。
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// ErrorKindOf は任意のエラーを分類します。
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if IsCancelled(err) {
		return KindCancelled
	}
	var ex exhausted
	if errors.As(err, &ex) && ex.ExhaustedRetries() {
		return KindExhaustedRetries
	}

	var (
		ve *ValidationError
		pe *ParseError
		pr *ProviderError
		se *StorageError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &se):
		return KindStorage
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &pr):
		return KindProvider
	}
	return KindUnknown
}

// NewSceneError はエラーからシーンに保存する形式を作ります。
func NewSceneError(err error) *SceneError {
	if err == nil {
		return nil
	}
	return &SceneError{Kind: ErrorKindOf(err), Message: err.Error()}
}
