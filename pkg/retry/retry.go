package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Policy はリトライの回数と待機時間の設定です。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy は推奨されるリトライ設定を返します。
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// ExhaustedRetriesError はすべての試行が失敗したことを表し、最後のエラーを保持します。
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// ExhaustedRetries は domain.ErrorKindOf がこのエラーを分類するための目印です。
func (e *ExhaustedRetriesError) ExhaustedRetries() bool { return true }

// linearBackOff は n 回目のリトライ前に n * base だけ待機します。ジッターはありません。
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// Do は operation を最大 MaxAttempts 回実行します。
// エラーの種類は区別せず、どのエラーでも同じようにリトライします。
// すべて失敗した場合は最後のエラーを包んだ *ExhaustedRetriesError を返します。
// コンテキストが終了した場合はそのエラーをそのまま返します。
func Do[T any](ctx context.Context, p Policy, operation func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		zero     T
		attempts int
		lastErr  error
	)

	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: p.BaseDelay}, uint64(maxAttempts-1)),
		ctx,
	)

	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempts++
		res, opErr := operation(ctx)
		if opErr != nil {
			lastErr = opErr
		}
		return res, opErr
	}, b, func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "Operation failed, retrying",
			"attempt", attempts,
			"max_attempts", maxAttempts,
			"wait", wait,
			"error", err)
	})
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return zero, err
	}
	return zero, &ExhaustedRetriesError{Attempts: attempts, Err: lastErr}
}
