package service

import (
	"context"

	"go.uber.org/zap"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/metrics"
)

type promptFn func(ctx context.Context, req domain.PromptRequest) (int, error)

// PromptForItemCount 按方向弹出购买 / 出售数量框。
//
// 永远不返回 error，也不向外传播 panic：弹窗报错、用户关闭、超时、
// 返回非正数，一律当作取消 (domain.CancelledCount)。
// 调用方只需要区分“拿到数量”和“取消”两种结果。
func (s *TradeService) PromptForItemCount(ctx context.Context, req domain.PromptRequest) (result domain.ItemCount) {
	flavor := "unknown"
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "quantity prompt panicked, treated as cancel",
				zap.String("flavor", flavor),
				zap.Any("panic", r),
			)
			result = domain.CancelledCount
		}
		metrics.PromptTotal.WithLabelValues(flavor, resultLabel(result)).Inc()
	}()

	type dispatch struct {
		flavor string
		fn     promptFn
	}
	d := domain.MatchDirection(req.Direction,
		func() dispatch { return dispatch{flavor: "purchase", fn: s.prompter.PromptPurchase} },
		func() dispatch { return dispatch{flavor: "sell", fn: s.prompter.PromptSell} },
	)
	flavor = d.flavor

	n, err := d.fn(ctx, req)
	if err != nil {
		logger.Warn(ctx, "quantity prompt failed, treated as cancel",
			zap.String("flavor", flavor),
			zap.String("player", req.PlayerID),
			zap.String("item", req.ItemID),
			zap.Error(err),
		)
		return domain.CancelledCount
	}
	if n <= 0 {
		logger.Debug(ctx, "quantity prompt returned non-positive count", zap.Int("count", n))
		return domain.CancelledCount
	}
	return domain.Count(n)
}

func resultLabel(c domain.ItemCount) string {
	if c.Cancelled() {
		return "cancelled"
	}
	return "ok"
}
