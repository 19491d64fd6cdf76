package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradepost.com/apps/merchant/internal/currency"
	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/common"
	"tradepost.com/pkg/orm"
)

type Inventory interface {
	GetActor(ctx context.Context, id string) (*domain.Actor, error)
	ListItems(ctx context.Context, ownerID string, page, limit int) ([]*domain.Item, int64, error)
}

type actorResp struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Kind        domain.ActorKind `json:"kind"`
	TokenLinked bool             `json:"tokenLinked"`
	Purse       currency.Purse   `json:"purse"`
	Total       string           `json:"total"`
}

type itemResp struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type Actor struct {
	inv Inventory
}

func NewActor(inv Inventory) *Actor {
	return &Actor{inv: inv}
}

// Get GET /api/actors/:actorId
func (h *Actor) Get(c *gin.Context) {
	a, err := h.inv.GetActor(c.Request.Context(), c.Param("actorId"))
	if err != nil {
		common.FailFromErr(c, err)
		return
	}
	common.Success(c, actorResp{
		ID:          a.ID,
		Name:        a.Name,
		Kind:        a.Kind,
		TokenLinked: a.TokenLinked,
		Purse:       a.Purse(),
		Total:       currency.FromActor(a).String(),
	})
}

// Items GET /api/actors/:actorId/items?page=1&limit=20
func (h *Actor) Items(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > orm.MaxLimit {
		limit = orm.MaxLimit
	}

	list, total, err := h.inv.ListItems(c.Request.Context(), c.Param("actorId"), page, limit)
	if err != nil {
		common.FailFromErr(c, err)
		return
	}
	out := make([]itemResp, 0, len(list))
	for _, it := range list {
		out = append(out, itemResp{
			ID:       it.ID,
			Name:     it.Name,
			Type:     it.Type,
			Quantity: it.Quantity,
			Price:    it.UnitPrice().String(),
		})
	}
	common.Success(c, gin.H{"items": out, "total": total})
}
