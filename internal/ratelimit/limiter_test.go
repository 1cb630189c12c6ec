package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter_Disabled(t *testing.T) {
	l := NewKeyedLimiter(0, 0)
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
	var nilLimiter *KeyedLimiter
	assert.True(t, nilLimiter.Allow("k"))
}

func TestKeyedLimiter_BurstPerKey(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "突发容量用尽")
	assert.True(t, l.Allow("b"), "不同调用方互不影响")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "一秒后补充一个令牌")
	assert.False(t, l.Allow("a"))
}

func TestKeyedLimiter_DefaultBurst(t *testing.T) {
	assert.Equal(t, 3, NewKeyedLimiter(2.5, 0).burst)
	assert.Equal(t, 1, NewKeyedLimiter(0.2, 0).burst)
}

func TestKeyedLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(5, 5)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(11 * time.Minute)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}
