package currency

import "github.com/shopspring/decimal"

// Purse 角色卡上的五种硬币
type Purse struct {
	PP int64 `json:"pp"`
	GP int64 `json:"gp"`
	EP int64 `json:"ep"`
	SP int64 `json:"sp"`
	CP int64 `json:"cp"`
}

// Total 折合总额
func (p Purse) Total() Amount {
	total := decimal.NewFromInt(p.PP).Mul(ratePP).
		Add(decimal.NewFromInt(p.GP).Mul(rateGP)).
		Add(decimal.NewFromInt(p.EP).Mul(rateEP)).
		Add(decimal.NewFromInt(p.SP).Mul(rateSP)).
		Add(decimal.NewFromInt(p.CP).Mul(rateCP))
	return FromDecimal(total)
}

// Coins 把金额拆成 gp/sp/cp
func Coins(a Amount) Purse {
	cp := a.Copper()
	return Purse{
		GP: cp / 100,
		SP: cp % 100 / 10,
		CP: cp % 10,
	}
}

// Pay 从钱包里付出 a，返回付款后的钱包。
// gp/sp/cp 够付时 pp/ep 原样保留，否则整个钱包折算后找零成 gp/sp/cp。
// 余额不足返回 ok=false。
func Pay(p Purse, a Amount) (Purse, bool) {
	small := Purse{GP: p.GP, SP: p.SP, CP: p.CP}.Total()
	if rest, ok := small.Sub(a); ok {
		out := Coins(rest)
		out.PP, out.EP = p.PP, p.EP
		return out, true
	}
	rest, ok := p.Total().Sub(a)
	if !ok {
		return p, false
	}
	return Coins(rest), true
}

// Receive 收入 a，按 gp/sp/cp 入袋
func Receive(p Purse, a Amount) Purse {
	c := Coins(a)
	p.GP += c.GP
	p.SP += c.SP
	p.CP += c.CP
	return p
}
