// Package currency 角色钱包和物品价格的统一金额表示。
//
// 金额以 gp 为单位、精确到 cp (0.01gp)，底层用 decimal，不会出现负数。
package currency

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// 各币种折合 gp
var (
	ratePP = decimal.NewFromInt(10)
	rateGP = decimal.NewFromInt(1)
	rateEP = decimal.RequireFromString("0.5")
	rateSP = decimal.RequireFromString("0.1")
	rateCP = decimal.RequireFromString("0.01")

	hundred = decimal.NewFromInt(100)
)

type Amount struct {
	gp decimal.Decimal
}

func Zero() Amount { return Amount{gp: decimal.Zero} }

// FromDecimal 按 gp 构造，精度截到 cp，负数按 0 处理
func FromDecimal(d decimal.Decimal) Amount {
	if d.IsNegative() {
		return Zero()
	}
	return Amount{gp: d.Round(2)}
}

func FromGP(n int64) Amount { return FromDecimal(decimal.NewFromInt(n)) }

func FromCopper(cp int64) Amount {
	return FromDecimal(decimal.NewFromInt(cp).Div(hundred))
}

func (a Amount) Decimal() decimal.Decimal { return a.gp }

// Copper 折合成 cp 个数
func (a Amount) Copper() int64 { return a.gp.Mul(hundred).IntPart() }

func (a Amount) IsZero() bool { return a.gp.IsZero() }

func (a Amount) Add(b Amount) Amount { return Amount{gp: a.gp.Add(b.gp)} }

// Sub 不够减时 ok=false，a 保持不变
func (a Amount) Sub(b Amount) (Amount, bool) {
	if a.gp.LessThan(b.gp) {
		return a, false
	}
	return Amount{gp: a.gp.Sub(b.gp)}, true
}

func (a Amount) Equal(b Amount) bool { return a.gp.Equal(b.gp) }

// PurseHolder 有钱包的对象 (actor)
type PurseHolder interface {
	Purse() Purse
}

// PriceHolder 有单价的对象 (item)
type PriceHolder interface {
	UnitPrice() Amount
}

// FromActor 角色当前持有的金额
func FromActor(h PurseHolder) Amount { return h.Purse().Total() }

// FromItem 物品单价
func FromItem(h PriceHolder) Amount { return h.UnitPrice() }

// Multiply count 件的总价，count <= 0 视为 0
func Multiply(count int, a Amount) Amount {
	if count <= 0 {
		return Zero()
	}
	return Amount{gp: a.gp.Mul(decimal.NewFromInt(int64(count)))}
}

// AtLeast a >= b
func AtLeast(a, b Amount) bool { return a.gp.GreaterThanOrEqual(b.gp) }

// String 拆成 gp/sp/cp 显示，例如 "12gp 3sp"；0 显示 "0gp"
func (a Amount) String() string {
	c := Coins(a)
	parts := make([]string, 0, 3)
	if c.GP > 0 {
		parts = append(parts, fmt.Sprintf("%dgp", c.GP))
	}
	if c.SP > 0 {
		parts = append(parts, fmt.Sprintf("%dsp", c.SP))
	}
	if c.CP > 0 {
		parts = append(parts, fmt.Sprintf("%dcp", c.CP))
	}
	if len(parts) == 0 {
		return "0gp"
	}
	return strings.Join(parts, " ")
}

var (
	priceToken  = regexp.MustCompile(`^(\d+(?:\.\d+)?)(pp|gp|ep|sp|cp)?$`)
	spacedDenom = regexp.MustCompile(`(\d)\s+(pp|gp|ep|sp|cp)\b`)
)

// ParsePrice 解析 "10gp" "2gp 5sp" "1.5 gp" "7"(默认 gp)
func ParsePrice(s string) (Amount, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Zero(), fmt.Errorf("empty price")
	}
	// "2 gp" 先合并成 "2gp" 再按空白拆
	s = spacedDenom.ReplaceAllString(s, "$1$2")
	total := decimal.Zero
	for _, tok := range strings.Fields(s) {
		m := priceToken.FindStringSubmatch(tok)
		if m == nil {
			return Zero(), fmt.Errorf("bad price token %q", tok)
		}
		n, err := decimal.NewFromString(m[1])
		if err != nil {
			return Zero(), fmt.Errorf("bad price number %q: %w", m[1], err)
		}
		total = total.Add(n.Mul(rateOf(m[2])))
	}
	return FromDecimal(total), nil
}

func rateOf(denom string) decimal.Decimal {
	switch denom {
	case "pp":
		return ratePP
	case "ep":
		return rateEP
	case "sp":
		return rateSP
	case "cp":
		return rateCP
	default:
		return rateGP
	}
}
