package domain

import (
	"context"

	"tradepost.com/apps/merchant/internal/currency"
)

// TradeRequest 方向由调用的操作决定 (Purchase / Sell)
type TradeRequest struct {
	PlayerID   string `json:"playerId" binding:"required"`
	MerchantID string `json:"merchantId" binding:"required"`
	ItemID     string `json:"itemId" binding:"required"`
}

// PromptRequest 数量弹窗参数
type PromptRequest struct {
	PlayerID   string
	MerchantID string
	ItemID     string
	Direction  Direction
	// Target 发起交易的界面 / 来源标签
	Target string
}

type LogType string

const (
	LogInfo  LogType = "info"
	LogError LogType = "error"
)

// LogMessage 返回给调用方展示的结果
type LogMessage struct {
	Type LogType `json:"type"`
	Msg  string  `json:"msg"`
}

func Info(msg string) *LogMessage  { return &LogMessage{Type: LogInfo, Msg: msg} }
func Error(msg string) *LogMessage { return &LogMessage{Type: LogError, Msg: msg} }

type CurrencyTransfer struct {
	From   *Actor
	To     *Actor
	Amount currency.Amount
}

// ItemTransfer Count 为 nil 表示整件 / 整堆
type ItemTransfer struct {
	From  *Actor
	To    *Actor
	Item  *Item
	Count *int
}

// ParticipantResolver 按 id 取出交易三方，任意一个找不到返回 error
type ParticipantResolver interface {
	ResolveParticipants(ctx context.Context, dir Direction, itemID, playerID, merchantID string) (*Participants, error)
}

// Ledger 两个转移原语，各自原子
type Ledger interface {
	TransferCurrency(ctx context.Context, t CurrencyTransfer) error
	TransferItem(ctx context.Context, t ItemTransfer) error
}

// QuantityPrompter 交互式数量弹窗，用户取消也通过 error 返回
type QuantityPrompter interface {
	PromptPurchase(ctx context.Context, req PromptRequest) (int, error)
	PromptSell(ctx context.Context, req PromptRequest) (int, error)
}

// Notifier 会话内通知，fire-and-forget
type Notifier interface {
	Info(ctx context.Context, text string)
	Error(ctx context.Context, text string)
}
