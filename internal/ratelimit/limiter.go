package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter 按调用方(API Key 或客户端IP)分别维护令牌桶
type KeyedLimiter struct {
	rate    rate.Limit
	burst   int
	idleTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*entry
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter rps<=0 时不限流；burst<=0 时取 ceil(rps)
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = int(rps)
		if float64(burst) < rps {
			burst++
		}
		if burst <= 0 {
			burst = 1
		}
	}
	return &KeyedLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Enabled 是否启用限流
func (l *KeyedLimiter) Enabled() bool {
	return l != nil && l.rate > 0
}

// Allow 消耗 key 对应桶中的一个令牌
func (l *KeyedLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Sweep 清理超过 idleTTL 未活动的桶，返回清理数量
func (l *KeyedLimiter) Sweep() int {
	if l == nil {
		return 0
	}
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len 当前维护的桶数
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
