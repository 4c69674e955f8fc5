package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testPolicy() *Policy {
	return &Policy{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestBackoffRetryer_Success(t *testing.T) {
	r := NewBackoffRetryer(testPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetryer_RetryAndSuccess(t *testing.T) {
	r := NewBackoffRetryer(testPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryer_Exhausted(t *testing.T) {
	r := NewBackoffRetryer(testPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errors.New("persistent")
	})

	assert.Error(t, err)
	assert.Equal(t, 4, calls) // 1 次执行 + 3 次重试
	assert.Contains(t, err.Error(), "persistent")
}

func TestBackoffRetryer_NotRetryable(t *testing.T) {
	p := testPolicy()
	fatal := errors.New("fatal")
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
	r := NewBackoffRetryer(p, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetryer_ContextCancel(t *testing.T) {
	p := testPolicy()
	p.InitialDelay = 1 * time.Second
	r := NewBackoffRetryer(p, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	p := testPolicy()
	var attempts []int
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	r := NewBackoffRetryer(p, zap.NewNop())

	_ = r.Do(context.Background(), func() error { return errors.New("x") })

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestCalculateDelay_Exponential(t *testing.T) {
	p := testPolicy()
	r := NewBackoffRetryer(p, zap.NewNop()).(*backoffRetryer)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 40*time.Millisecond, r.calculateDelay(3))
	// 上限裁剪
	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(10))
}
