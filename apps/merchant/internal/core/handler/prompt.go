package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/apps/merchant/internal/infra/prompt"
	"tradepost.com/pkg/common"
	"tradepost.com/pkg/xerr"
)

type PromptBoard interface {
	Pending(ctx context.Context, playerID string) ([]prompt.Pending, error)
	Answer(ctx context.Context, promptID string, count domain.ItemCount) error
}

type answerReq struct {
	Count   int  `json:"count"`
	Dismiss bool `json:"dismiss"`
}

type Prompt struct {
	board PromptBoard
}

func NewPrompt(b PromptBoard) *Prompt {
	return &Prompt{board: b}
}

// List GET /api/prompts/:playerId
func (h *Prompt) List(c *gin.Context) {
	list, err := h.board.Pending(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		common.FailFromErr(c, err)
		return
	}
	common.Success(c, gin.H{"prompts": list})
}

// Answer POST /api/prompts/:promptId/answer
// {"count": 3} 确认数量，{"dismiss": true} 关闭弹窗
func (h *Prompt) Answer(c *gin.Context) {
	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailFromErr(c, xerr.Wrap(err, xerr.RequestParamsError, "bad answer"))
		return
	}

	count := domain.CancelledCount
	if !req.Dismiss {
		if req.Count <= 0 {
			common.FailFromErr(c, xerr.New(xerr.RequestParamsError, "count must be positive"))
			return
		}
		count = domain.Count(req.Count)
	}

	if err := h.board.Answer(c.Request.Context(), c.Param("promptId"), count); err != nil {
		common.FailFromErr(c, err)
		return
	}
	common.Success(c, nil)
}
