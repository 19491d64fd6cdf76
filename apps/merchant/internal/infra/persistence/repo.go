package persistence

import (
	"context"

	"gorm.io/gorm"

	"tradepost.com/apps/merchant/internal/domain"
)

type txKey struct{}

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// 确保 Repo 实现了所有接口
var (
	_ domain.ParticipantResolver = (*Repo)(nil)
	_ domain.Ledger              = (*Repo)(nil)
)

// Migrate 建表，启动和测试时调用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Actor{}, &domain.Item{})
}

// Transaction 把 tx 注入 ctx，fn 内的 repo 调用自动复用同一个事务。
// 已经在事务里时直接复用，不开嵌套事务。
func (r *Repo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 有事务用事务
func (r *Repo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}
