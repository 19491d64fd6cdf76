package items

import (
	"strings"

	"tradepost.com/apps/merchant/internal/domain"
)

// 可以按数量拆分交易的物品类型
var stackableTypes = map[string]struct{}{
	"consumable": {},
	"loot":       {},
	"ammunition": {},
}

// CanStack 物品是否能以数量 > 1 的形式存在并部分转移
func CanStack(item *domain.Item) bool {
	if item == nil {
		return false
	}
	_, ok := stackableTypes[strings.ToLower(item.Type)]
	return ok
}

// IsMultiUnit 可堆叠且当前数量 > 1，需要先问数量
func IsMultiUnit(item *domain.Item) bool {
	return CanStack(item) && item.Quantity > 1
}
