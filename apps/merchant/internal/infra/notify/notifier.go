package notify

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/apps/merchant/internal/infra/broker"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/metrics"
	"tradepost.com/pkg/ratelimit"
)

// ChatTopic 会话聊天栏通知
const ChatTopic = "merchant:chat"

const breakerResource = "broker:publish"

// Event 广播到聊天栏的一条通知
type Event struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier 通知先落日志再发布到 broker。
// 发布失败或熔断只记日志和计数，不影响交易结果。
type Notifier struct {
	broker   broker.Broker
	breakers *ratelimit.Breakers
	timeout  time.Duration
}

var _ domain.Notifier = (*Notifier)(nil)

func New(b broker.Broker, breakers *ratelimit.Breakers) *Notifier {
	return &Notifier{broker: b, breakers: breakers, timeout: 2 * time.Second}
}

func (n *Notifier) Info(ctx context.Context, text string) {
	logger.Info(ctx, "notify", zap.String("text", text))
	n.publish(ctx, "info", text)
}

func (n *Notifier) Error(ctx context.Context, text string) {
	logger.Warn(ctx, "notify", zap.String("text", text), zap.String("level", "error"))
	n.publish(ctx, "error", text)
}

func (n *Notifier) publish(ctx context.Context, level, text string) {
	ev := Event{Level: level, Text: text, At: time.Now().UTC()}
	if rid, ok := ctx.Value(logger.RequestIdKey).(string); ok {
		ev.RequestID = rid
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.drop(ctx, level, "encode", err)
		return
	}

	err = n.breakers.Do(breakerResource, func() error {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		return n.broker.Publish(pctx, ChatTopic, payload)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		n.drop(ctx, level, "breaker_open", err)
	default:
		n.drop(ctx, level, "publish", err)
	}
}

func (n *Notifier) drop(ctx context.Context, level, reason string, err error) {
	metrics.NotifyDropTotal.WithLabelValues(level, reason).Inc()
	logger.Warn(ctx, "notification dropped",
		zap.String("level", level),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
