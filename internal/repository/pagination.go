package repository

import "gorm.io/gorm"

// maxListPageSize 后台导出与命令行查询的单页上限
const maxListPageSize = 500

// paginate 分页 scope，pageSize<=0 表示不分页，超过上限按上限截断
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if pageSize > maxListPageSize {
			pageSize = maxListPageSize
		}
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
