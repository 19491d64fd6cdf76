package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradepost.com/apps/merchant/internal/currency"
	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/apps/merchant/internal/items"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/metrics"
)

// 交易结果，用于 metrics 标签
const (
	outcomeSuccess      = "success"
	outcomeInsufficient = "insufficient"
	outcomeShortfall    = "shortfall"
	outcomeCancelled    = "cancelled"
	outcomeUnlinked     = "unlinked"
	outcomeFailed       = "failed"
)

// settleTimeout 两次转移共用的上限，和请求的生命周期无关
const settleTimeout = 10 * time.Second

// TradeService 玩家和商人之间的买卖。
// 本身不持有状态也不加锁；余额只在开头读一次，并发修改由 Ledger 保证。
type TradeService struct {
	participants domain.ParticipantResolver
	ledger       domain.Ledger
	prompter     domain.QuantityPrompter
	notifier     domain.Notifier
}

func NewTradeService(
	participants domain.ParticipantResolver,
	ledger domain.Ledger,
	prompter domain.QuantityPrompter,
	notifier domain.Notifier,
) *TradeService {
	return &TradeService{
		participants: participants,
		ledger:       ledger,
		prompter:     prompter,
		notifier:     notifier,
	}
}

// Purchase 玩家向商人购买 req.ItemID。
// 返回 nil, nil 表示用户取消了数量弹窗，什么都不用显示。
// 参与方解析失败、转移失败直接返回 error。
func (s *TradeService) Purchase(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error) {
	p, err := s.participants.ResolveParticipants(ctx, domain.ToPlayer, req.ItemID, req.PlayerID, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve purchase participants: %w", err)
	}
	player, merchant, item := p.Player, p.Merchant, p.Item

	if !merchant.TokenLinked {
		s.notifier.Error(ctx, fmt.Sprintf("remember to link actor data for merchant \"%s\"", merchant.Name))
		record(domain.ToPlayer, outcomeUnlinked)
		return domain.Error("purchase failed, please consult your DM"), nil
	}

	playerCurrency := currency.FromActor(player)

	if items.IsMultiUnit(item) {
		count, ok := s.PromptForItemCount(ctx, domain.PromptRequest{
			PlayerID:   player.ID,
			MerchantID: merchant.ID,
			ItemID:     item.ID,
			Direction:  domain.ToPlayer,
			Target:     from,
		}).Value()
		if !ok {
			record(domain.ToPlayer, outcomeCancelled)
			return nil, nil
		}
		if count > item.Quantity {
			s.notifier.Info(ctx, fmt.Sprintf("%s attempted to purchase %s (%d) but only has %d",
				player.Name, item.Name, count, item.Quantity))
			record(domain.ToPlayer, outcomeShortfall)
			return domain.Info(fmt.Sprintf("you tried to purchase %s (%d) but they only have %d",
				item.Name, count, item.Quantity)), nil
		}

		price := currency.Multiply(count, currency.FromItem(item))
		if !currency.AtLeast(playerCurrency, price) {
			s.notifier.Info(ctx, fmt.Sprintf("%s attempted to purchase %s (%d) from %s but didn't have enough currency",
				player.Name, item.Name, count, merchant.Name))
			record(domain.ToPlayer, outcomeInsufficient)
			return domain.Error(fmt.Sprintf("you tried to purchase %s (%d) from %s for %s but didn't have enough",
				item.Name, count, merchant.Name, price)), nil
		}

		if err := s.settle(ctx, domain.ToPlayer, player, merchant, item, price, &count); err != nil {
			return nil, err
		}
		s.notifier.Info(ctx, fmt.Sprintf("%s purchased %s (%d) from %s for %s",
			player.Name, item.Name, count, merchant.Name, price))
		return domain.Info(fmt.Sprintf("purchased %s (%d) from %s", item.Name, count, merchant.Name)), nil
	}

	price := currency.FromItem(item)
	if !currency.AtLeast(playerCurrency, price) {
		s.notifier.Info(ctx, fmt.Sprintf("%s attempted to purchase %s from %s but didn't have enough currency",
			player.Name, item.Name, merchant.Name))
		record(domain.ToPlayer, outcomeInsufficient)
		return domain.Error("you don't have enough currency to make this purchase"), nil
	}

	if err := s.settle(ctx, domain.ToPlayer, player, merchant, item, price, nil); err != nil {
		return nil, err
	}
	s.notifier.Info(ctx, fmt.Sprintf("%s purchased %s from %s for %s",
		player.Name, item.Name, merchant.Name, price))
	return domain.Info(fmt.Sprintf("purchased %s from %s for %s", item.Name, merchant.Name, price)), nil
}

// Sell 玩家把 req.ItemID 卖给商人，付款能力看商人的钱包。
// 返回值约定同 Purchase。
func (s *TradeService) Sell(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error) {
	p, err := s.participants.ResolveParticipants(ctx, domain.FromPlayer, req.ItemID, req.PlayerID, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve sale participants: %w", err)
	}
	player, merchant, item := p.Player, p.Merchant, p.Item

	if !merchant.TokenLinked {
		s.notifier.Error(ctx, fmt.Sprintf("remember to link actor data for merchant \"%s\"", merchant.Name))
		record(domain.FromPlayer, outcomeUnlinked)
		return domain.Error("sale failed, please consult your DM"), nil
	}

	merchantCurrency := currency.FromActor(merchant)

	if items.IsMultiUnit(item) {
		count, ok := s.PromptForItemCount(ctx, domain.PromptRequest{
			PlayerID:   player.ID,
			MerchantID: merchant.ID,
			ItemID:     item.ID,
			Direction:  domain.FromPlayer,
			Target:     from,
		}).Value()
		if !ok {
			record(domain.FromPlayer, outcomeCancelled)
			return nil, nil
		}
		if count > item.Quantity {
			s.notifier.Info(ctx, fmt.Sprintf("%s attempted to sell %s (%d) but only has %d",
				player.Name, item.Name, count, item.Quantity))
			record(domain.FromPlayer, outcomeShortfall)
			return domain.Info(fmt.Sprintf("you tried to sell %s (%d) but you only have %d",
				item.Name, count, item.Quantity)), nil
		}

		price := currency.Multiply(count, currency.FromItem(item))
		if !currency.AtLeast(merchantCurrency, price) {
			s.notifier.Info(ctx, fmt.Sprintf("%s attempted to sell %s (%d) but %s didn't have enough currency",
				player.Name, item.Name, count, merchant.Name))
			record(domain.FromPlayer, outcomeInsufficient)
			return domain.Error(fmt.Sprintf("you tried to sell %s (%d) for %s but %s doesn't have enough",
				item.Name, count, price, merchant.Name)), nil
		}

		if err := s.settle(ctx, domain.FromPlayer, player, merchant, item, price, &count); err != nil {
			return nil, err
		}
		s.notifier.Info(ctx, fmt.Sprintf("%s sold %s (%d) to %s for %s",
			player.Name, item.Name, count, merchant.Name, price))
		return domain.Info(fmt.Sprintf("sold %s (%d) to %s", item.Name, count, merchant.Name)), nil
	}

	price := currency.FromItem(item)
	if !currency.AtLeast(merchantCurrency, price) {
		s.notifier.Info(ctx, fmt.Sprintf("%s attempted to sell %s but %s didn't have enough currency",
			player.Name, item.Name, merchant.Name))
		record(domain.FromPlayer, outcomeInsufficient)
		return domain.Error(fmt.Sprintf("attempted to sell %s for %s but %s doesn't have enough currency",
			item.Name, price, merchant.Name)), nil
	}

	if err := s.settle(ctx, domain.FromPlayer, player, merchant, item, price, nil); err != nil {
		return nil, err
	}
	s.notifier.Info(ctx, fmt.Sprintf("%s sold %s to %s for %s",
		player.Name, item.Name, merchant.Name, price))
	return domain.Info(fmt.Sprintf("sold %s to %s for %s", item.Name, merchant.Name, price)), nil
}

// settle 先付钱再转物品，顺序不能换：中途失败时最多是卖方收了钱还没交货。
// 物品转移失败不回滚货款。
func (s *TradeService) settle(
	ctx context.Context,
	dir domain.Direction,
	player, merchant *domain.Actor,
	item *domain.Item,
	price currency.Amount,
	count *int,
) error {
	type roles struct{ payer, payee *domain.Actor }
	r := domain.MatchDirection(dir,
		func() roles { return roles{payer: player, payee: merchant} },
		func() roles { return roles{payer: merchant, payee: player} },
	)
	payer, payee := r.payer, r.payee

	fields := []zap.Field{
		zap.String("direction", dir.String()),
		zap.String("player", player.ID),
		zap.String("merchant", merchant.ID),
		zap.String("item", item.ID),
		zap.String("price", price.Decimal().String()),
	}
	if count != nil {
		fields = append(fields, zap.Int("count", *count))
	}

	// 已经通过校验就要做完：客户端断开不能让货款转了、物品没转
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err := s.ledger.TransferCurrency(ctx, domain.CurrencyTransfer{
		From:   payer,
		To:     payee,
		Amount: price,
	}); err != nil {
		record(dir, outcomeFailed)
		logger.Error(ctx, "currency transfer failed", append(fields, zap.Error(err))...)
		return fmt.Errorf("transfer currency: %w", err)
	}

	// 物品方向和货款相反
	if err := s.ledger.TransferItem(ctx, domain.ItemTransfer{
		From:  payee,
		To:    payer,
		Item:  item,
		Count: count,
	}); err != nil {
		record(dir, outcomeFailed)
		logger.Error(ctx, "item transfer failed after payment, trade half-completed", append(fields, zap.Error(err))...)
		return fmt.Errorf("transfer item: %w", err)
	}

	record(dir, outcomeSuccess)
	logger.Info(ctx, "trade settled", fields...)
	return nil
}

func record(dir domain.Direction, outcome string) {
	metrics.TradeTotal.WithLabelValues(dir.String(), outcome).Inc()
}
