package service

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff - 지수 backoff + jitter
// 호출 1건(재시도 루프 1회)마다 새로 만들어서 사용
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64 // 0-1

	attempt int
}

// NewBackoff - Backoff 객체 생성 (multiplier 2, jitter 10%)
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return &Backoff{
		Initial:    initial,
		Max:        max,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Next - 다음 대기 시간 (initial * multiplier^attempt, max로 제한)
func (b *Backoff) Next() time.Duration {
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(b.attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		jitterRange := delay * b.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = float64(b.Initial)
	}

	b.attempt++
	return time.Duration(delay)
}

// Attempt - 지금까지 Next 호출 횟수
func (b *Backoff) Attempt() int {
	return b.attempt
}

// sleepFunc - ctx 취소 시 즉시 반환 (테스트에서 교체)
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
