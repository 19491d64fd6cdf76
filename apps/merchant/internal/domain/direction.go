package domain

import (
	"encoding/json"
	"fmt"
)

// Direction 交易方向，只有 ToPlayer / FromPlayer 两个取值。
// 接口带未导出方法，包外无法再实现第三种方向；
// 分支统一走 MatchDirection，新增方向必须改它的签名，所有调用点都会编译失败。
type Direction interface {
	fmt.Stringer
	match(toPlayer, fromPlayer func())
}

type toPlayer struct{}

type fromPlayer struct{}

func (toPlayer) String() string   { return "to-player" }
func (fromPlayer) String() string { return "from-player" }

func (toPlayer) match(t, _ func())   { t() }
func (fromPlayer) match(_, f func()) { f() }

var (
	// ToPlayer 商人 -> 玩家 (购买)
	ToPlayer Direction = toPlayer{}
	// FromPlayer 玩家 -> 商人 (出售)
	FromPlayer Direction = fromPlayer{}
)

// MatchDirection 按方向取值，两个分支都必须给出
func MatchDirection[T any](d Direction, onToPlayer func() T, onFromPlayer func() T) T {
	var out T
	d.match(
		func() { out = onToPlayer() },
		func() { out = onFromPlayer() },
	)
	return out
}

// ParseDirection 只用在边界 (HTTP / 存储)，内部一律用 Direction 值
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "to-player":
		return ToPlayer, nil
	case "from-player":
		return FromPlayer, nil
	}
	return nil, fmt.Errorf("unknown trade direction %q", s)
}

// DirectionJSON 让 Direction 可以出现在 json 结构里
type DirectionJSON struct{ Direction }

func (d DirectionJSON) MarshalJSON() ([]byte, error) {
	if d.Direction == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.Direction.String())
}

func (d *DirectionJSON) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dir, err := ParseDirection(s)
	if err != nil {
		return err
	}
	d.Direction = dir
	return nil
}
