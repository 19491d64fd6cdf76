package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradepost.com/apps/merchant/internal/currency"
	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/apps/merchant/internal/items"
	"tradepost.com/pkg/xerr"
)

// TransferCurrency 在一个事务里扣款、入账。
// 余额按库里最新值重新计算，不信任调用方手里的快照；
// 每次写都带 version 条件，并发修改时返回 VersionConflict，不会扣成负数。
func (r *Repo) TransferCurrency(ctx context.Context, t domain.CurrencyTransfer) error {
	if t.From == nil || t.To == nil {
		return xerr.New(xerr.RequestParamsError, "currency transfer needs both actors")
	}
	if t.Amount.IsZero() {
		return nil
	}

	return r.Transaction(ctx, func(ctx context.Context) error {
		payer, err := r.GetActor(ctx, t.From.ID)
		if err != nil {
			return err
		}
		paid, ok := currency.Pay(payer.Purse(), t.Amount)
		if !ok {
			return xerr.New(xerr.InsufficientFunds,
				fmt.Sprintf("actor %s holds %s, needs %s", payer.ID, currency.FromActor(payer), t.Amount))
		}
		payer.SetPurse(paid)
		if err := r.updatePurse(ctx, payer); err != nil {
			return err
		}

		// 付款方和收款方是同一个人时要读到刚写入的版本
		payee, err := r.GetActor(ctx, t.To.ID)
		if err != nil {
			return err
		}
		payee.SetPurse(currency.Receive(payee.Purse(), t.Amount))
		return r.updatePurse(ctx, payee)
	})
}

// SQL: UPDATE actors SET pp=?, gp=?, ep=?, sp=?, cp=?, version = version + 1
//
//	WHERE id = ? AND version = ?
func (r *Repo) updatePurse(ctx context.Context, a *domain.Actor) error {
	res := r.conn(ctx).Model(&domain.Actor{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]interface{}{
			"pp":      a.PP,
			"gp":      a.GP,
			"ep":      a.EP,
			"sp":      a.SP,
			"cp":      a.CP,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return xerr.Wrap(res.Error, xerr.DbError, "update purse failed")
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.VersionConflict, fmt.Sprintf("actor %s changed concurrently", a.ID))
	}
	a.Version++
	return nil
}

// TransferItem 把物品 (或一堆里的 Count 件) 从 From 转给 To。
// 可堆叠物品优先合并到对方同名同类的那一堆；拆堆时给对方新建一行。
func (r *Repo) TransferItem(ctx context.Context, t domain.ItemTransfer) error {
	if t.From == nil || t.To == nil || t.Item == nil {
		return xerr.New(xerr.RequestParamsError, "item transfer needs both actors and an item")
	}

	return r.Transaction(ctx, func(ctx context.Context) error {
		src, err := r.getOwnedItem(ctx, t.Item.ID, t.From.ID)
		if err != nil {
			return err
		}

		count := src.Quantity
		if t.Count != nil {
			count = *t.Count
		}
		if count <= 0 {
			return xerr.New(xerr.RequestParamsError, fmt.Sprintf("invalid transfer count %d", count))
		}
		if count > src.Quantity {
			return xerr.New(xerr.InsufficientStock,
				fmt.Sprintf("item %s has %d, requested %d", src.ID, src.Quantity, count))
		}
		whole := count == src.Quantity

		var stack *domain.Item
		if items.CanStack(src) {
			if stack, err = r.findStack(ctx, t.To.ID, src); err != nil {
				return err
			}
		}

		switch {
		case stack != nil:
			if err := r.updateItem(ctx, stack, map[string]interface{}{
				"quantity": stack.Quantity + count,
			}); err != nil {
				return err
			}
			if whole {
				return r.deleteItem(ctx, src)
			}
			return r.updateItem(ctx, src, map[string]interface{}{"quantity": src.Quantity - count})

		case whole:
			return r.updateItem(ctx, src, map[string]interface{}{"owner_id": t.To.ID})

		default:
			if err := r.updateItem(ctx, src, map[string]interface{}{"quantity": src.Quantity - count}); err != nil {
				return err
			}
			split := &domain.Item{
				ID:       uuid.NewString(),
				OwnerID:  t.To.ID,
				Name:     src.Name,
				Type:     src.Type,
				Price:    src.Price,
				Quantity: count,
			}
			if err := r.conn(ctx).Create(split).Error; err != nil {
				return xerr.Wrap(err, xerr.DbError, "create split stack failed")
			}
			return nil
		}
	})
}

// findStack 对方身上可以合并的那一堆，没有返回 nil
func (r *Repo) findStack(ctx context.Context, ownerID string, like *domain.Item) (*domain.Item, error) {
	var it domain.Item
	err := r.conn(ctx).
		Where("owner_id = ? AND name = ? AND type = ? AND id <> ?", ownerID, like.Name, like.Type, like.ID).
		Order("id ASC").
		First(&it).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, xerr.Wrap(err, xerr.DbError, "find stack failed")
	}
	return &it, nil
}

func (r *Repo) updateItem(ctx context.Context, it *domain.Item, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := r.conn(ctx).Model(&domain.Item{}).
		Where("id = ? AND version = ?", it.ID, it.Version).
		Updates(updates)
	if res.Error != nil {
		return xerr.Wrap(res.Error, xerr.DbError, "update item failed")
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.VersionConflict, fmt.Sprintf("item %s changed concurrently", it.ID))
	}
	return nil
}

func (r *Repo) deleteItem(ctx context.Context, it *domain.Item) error {
	res := r.conn(ctx).Where("id = ? AND version = ?", it.ID, it.Version).Delete(&domain.Item{})
	if res.Error != nil {
		return xerr.Wrap(res.Error, xerr.DbError, "delete item failed")
	}
	if res.RowsAffected == 0 {
		return xerr.New(xerr.VersionConflict, fmt.Sprintf("item %s changed concurrently", it.ID))
	}
	return nil
}
