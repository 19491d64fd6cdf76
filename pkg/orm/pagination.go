package orm

import "gorm.io/gorm"

// MaxLimit 单页条数上限
const MaxLimit = 100

// ApplyPagination page 从 1 开始；page 或 limit 非正数时不分页，limit 超过 MaxLimit 截断
func ApplyPagination(db *gorm.DB, page, limit int) *gorm.DB {
	if page <= 0 || limit <= 0 {
		return db
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return db.Offset((page - 1) * limit).Limit(limit)
}
