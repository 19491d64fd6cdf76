package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/common"
	"tradepost.com/pkg/xerr"
)

// HeaderPlayerID 限流按玩家区分
const HeaderPlayerID = "X-Player-Id"

type Trader interface {
	Purchase(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error)
	Sell(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error)
}

type tradeResp struct {
	// Log 为空表示用户取消了数量弹窗
	Log       *domain.LogMessage `json:"log"`
	Cancelled bool               `json:"cancelled"`
}

type Merchant struct {
	trader Trader
}

func NewMerchant(t Trader) *Merchant {
	return &Merchant{trader: t}
}

// Purchase POST /api/merchant/purchase?from=<界面来源>
func (h *Merchant) Purchase(c *gin.Context) {
	h.trade(c, h.trader.Purchase)
}

// Sell POST /api/merchant/sell?from=<界面来源>
func (h *Merchant) Sell(c *gin.Context) {
	h.trade(c, h.trader.Sell)
}

func (h *Merchant) trade(c *gin.Context, fn func(context.Context, domain.TradeRequest, string) (*domain.LogMessage, error)) {
	var req domain.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailFromErr(c, xerr.Wrap(err, xerr.RequestParamsError, "bad trade request"))
		return
	}

	msg, err := fn(c.Request.Context(), req, c.Query("from"))
	if err != nil {
		common.FailFromErr(c, err)
		return
	}
	common.Success(c, tradeResp{Log: msg, Cancelled: msg == nil})
}
