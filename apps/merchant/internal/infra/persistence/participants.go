package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/orm"
	"tradepost.com/pkg/xerr"
)

// ResolveParticipants 取出玩家、商人和交易物品。
// 购买时物品必须在商人身上，出售时必须在玩家身上。
func (r *Repo) ResolveParticipants(ctx context.Context, dir domain.Direction, itemID, playerID, merchantID string) (*domain.Participants, error) {
	player, err := r.GetActor(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.Kind != domain.ActorPlayer {
		return nil, xerr.New(xerr.RequestParamsError, fmt.Sprintf("actor %s is not a player", playerID))
	}

	merchant, err := r.GetActor(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.Kind != domain.ActorMerchant {
		return nil, xerr.New(xerr.RequestParamsError, fmt.Sprintf("actor %s is not a merchant", merchantID))
	}

	source := domain.MatchDirection(dir,
		func() *domain.Actor { return merchant },
		func() *domain.Actor { return player },
	)
	item, err := r.getOwnedItem(ctx, itemID, source.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Participants{Player: player, Merchant: merchant, Item: item}, nil
}

func (r *Repo) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	var a domain.Actor
	err := r.conn(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("actor %s not found", id))
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get actor failed")
	}
	return &a, nil
}

func (r *Repo) getOwnedItem(ctx context.Context, itemID, ownerID string) (*domain.Item, error) {
	var it domain.Item
	err := r.conn(ctx).Where("id = ? AND owner_id = ?", itemID, ownerID).First(&it).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.RecordNotFound, fmt.Sprintf("item %s not found on actor %s", itemID, ownerID))
		}
		return nil, xerr.Wrap(err, xerr.DbError, "get item failed")
	}
	return &it, nil
}

// ListItems 角色物品栏，按名字排序
func (r *Repo) ListItems(ctx context.Context, ownerID string, page, limit int) ([]*domain.Item, int64, error) {
	owned := func() *gorm.DB {
		return r.conn(ctx).Model(&domain.Item{}).Where("owner_id = ?", ownerID)
	}

	var total int64
	if err := owned().Count(&total).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "count items failed")
	}

	list := make([]*domain.Item, 0)
	if err := orm.ApplyPagination(owned().Order("name ASC, id ASC"), page, limit).Find(&list).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "list items failed")
	}
	return list, total, nil
}

// SaveActor / SaveItem 用于导入角色卡数据
func (r *Repo) SaveActor(ctx context.Context, a *domain.Actor) error {
	if err := r.conn(ctx).Save(a).Error; err != nil {
		return xerr.Wrap(err, xerr.DbError, "save actor failed")
	}
	return nil
}

func (r *Repo) SaveItem(ctx context.Context, it *domain.Item) error {
	if err := r.conn(ctx).Save(it).Error; err != nil {
		return xerr.Wrap(err, xerr.DbError, "save item failed")
	}
	return nil
}
