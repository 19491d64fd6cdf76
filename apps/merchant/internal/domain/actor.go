package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"tradepost.com/apps/merchant/internal/currency"
)

type ActorKind string

const (
	ActorPlayer   ActorKind = "player"
	ActorMerchant ActorKind = "merchant"
)

// Actor 玩家或商人。钱包按币种分列，和角色卡一致
type Actor struct {
	ID   string    `gorm:"primaryKey;size:64"`
	Name string    `gorm:"size:128"`
	Kind ActorKind `gorm:"size:16"`
	// TokenLinked 场景 token 是否已关联到角色数据，未关联的商人不能交易
	TokenLinked bool

	PP int64 // platinum
	GP int64 // gold
	EP int64 // electrum
	SP int64 // silver
	CP int64 // copper

	Version   int64 `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item 同一时刻只属于一个 actor
type Item struct {
	ID      string `gorm:"primaryKey;size:64"`
	OwnerID string `gorm:"index;size:64"`
	Name    string `gorm:"size:128"`
	Type    string `gorm:"size:32"`
	// Price 单价，单位 gp
	Price    decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	Quantity int             `gorm:"default:1"`

	Version   int64 `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participants 一次交易涉及的三方
type Participants struct {
	Player   *Actor
	Merchant *Actor
	Item     *Item
}

func (a *Actor) Purse() currency.Purse {
	return currency.Purse{PP: a.PP, GP: a.GP, EP: a.EP, SP: a.SP, CP: a.CP}
}

// SetPurse 只改内存，落库由 ledger 负责
func (a *Actor) SetPurse(p currency.Purse) {
	a.PP, a.GP, a.EP, a.SP, a.CP = p.PP, p.GP, p.EP, p.SP, p.CP
}

func (i *Item) UnitPrice() currency.Amount {
	return currency.FromDecimal(i.Price)
}
