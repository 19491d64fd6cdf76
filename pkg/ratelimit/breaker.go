package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Rule struct {
	// Half-Open 状态允许通过的探测请求数
	MaxRequests uint32
	// Closed 状态计数窗口
	Interval time.Duration
	// Open 状态持续时间，到期进入 Half-Open
	Timeout time.Duration

	TripConsecutiveFailures uint32  // 连续失败阈值
	TripFailureRate         float64 // 失败率阈值 (0~1)
	TripMinRequests         uint32  // 失败率计算的最小样本数
}

// Breakers 按资源名懒加载熔断器
type Breakers struct {
	mu sync.RWMutex
	m  map[string]*gobreaker.CircuitBreaker[struct{}]

	defaultRule Rule
	rules       map[string]Rule
}

func NewBreakers(defaultRule Rule, perResource map[string]Rule) *Breakers {
	if defaultRule.MaxRequests == 0 {
		defaultRule.MaxRequests = 1
	}
	if defaultRule.Timeout <= 0 {
		defaultRule.Timeout = 5 * time.Second
	}
	if defaultRule.Interval <= 0 {
		defaultRule.Interval = 10 * time.Second
	}
	if defaultRule.TripConsecutiveFailures == 0 && defaultRule.TripFailureRate == 0 {
		defaultRule.TripConsecutiveFailures = 5
	}
	if defaultRule.TripMinRequests == 0 {
		defaultRule.TripMinRequests = 20
	}
	return &Breakers{
		m:           make(map[string]*gobreaker.CircuitBreaker[struct{}], 8),
		defaultRule: defaultRule,
		rules:       perResource,
	}
}

func (b *Breakers) Get(resource string) *gobreaker.CircuitBreaker[struct{}] {
	b.mu.RLock()
	cb := b.m[resource]
	b.mu.RUnlock()
	if cb != nil {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb = b.m[resource]; cb != nil {
		return cb
	}

	rule, ok := b.rules[resource]
	if !ok {
		rule = b.defaultRule
	}
	cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        resource,
		MaxRequests: rule.MaxRequests,
		Interval:    rule.Interval,
		Timeout:     rule.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if rule.TripConsecutiveFailures > 0 && c.ConsecutiveFailures >= rule.TripConsecutiveFailures {
				return true
			}
			if rule.TripFailureRate > 0 && c.Requests >= rule.TripMinRequests {
				return float64(c.TotalFailures)/float64(c.Requests) >= rule.TripFailureRate
			}
			return false
		},
		IsSuccessful: isSuccessfulForBreaker,
	})
	b.m[resource] = cb
	return cb
}

// Do 在熔断器保护下执行 fn，熔断打开时直接返回 gobreaker.ErrOpenState
func (b *Breakers) Do(resource string, fn func() error) error {
	_, err := b.Get(resource).Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// 调用方主动取消不代表依赖不健康
func isSuccessfulForBreaker(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
