package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AllowPerKey(t *testing.T) {
	s := NewStore(0.0001, 2, time.Minute)

	assert.True(t, s.Allow("a"))
	assert.True(t, s.Allow("a"))
	assert.False(t, s.Allow("a"), "burst 用完后应被拒绝")
	assert.True(t, s.Allow("b"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_CleanupDropsIdleKeys(t *testing.T) {
	s := NewStore(10, 1, time.Second)
	s.Allow("idle")

	s.cleanup(time.Now().Add(2 * time.Second))
	assert.Equal(t, 0, s.Len())
}

func TestStore_WaitHonoursContext(t *testing.T) {
	s := NewStore(0.0001, 1, time.Minute)
	require.NoError(t, s.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Wait(ctx, "k"))
}

func TestBreakers_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreakers(Rule{TripConsecutiveFailures: 2, Timeout: time.Minute}, nil)
	boom := errors.New("nats down")

	assert.ErrorIs(t, b.Do("notify", func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do("notify", func() error { return boom }), boom)

	called := false
	err := b.Do("notify", func() error { called = true; return nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)

	// 资源之间互不影响
	assert.NoError(t, b.Do("other", func() error { return nil }))
}

func TestBreakers_CanceledIsNotFailure(t *testing.T) {
	b := NewBreakers(Rule{TripConsecutiveFailures: 1, Timeout: time.Minute}, nil)

	_ = b.Do("r", func() error { return context.Canceled })
	assert.NoError(t, b.Do("r", func() error { return nil }))
}
