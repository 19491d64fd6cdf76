package domain

import "strconv"

// ItemCount 数量弹窗的结果：要么是用户选的数量，要么是取消
type ItemCount struct {
	n         int
	cancelled bool
}

// CancelledCount 用户关闭弹窗 / 弹窗失败
var CancelledCount = ItemCount{cancelled: true}

func Count(n int) ItemCount { return ItemCount{n: n} }

// Value 取消时 ok=false
func (c ItemCount) Value() (n int, ok bool) {
	if c.cancelled {
		return 0, false
	}
	return c.n, true
}

func (c ItemCount) Cancelled() bool { return c.cancelled }

func (c ItemCount) String() string {
	if c.cancelled {
		return "cancelled"
	}
	return strconv.Itoa(c.n)
}
