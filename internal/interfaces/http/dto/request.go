package dto

import (
	"strconv"

	"storywriter-api/internal/domain/repository"

	"github.com/gin-gonic/gin"
)

// BindPagination 从查询参数绑定分页（page / per_page）
func BindPagination(c *gin.Context) repository.Pagination {
	page := parseIntWithDefault(c.Query("page"), 1)
	perPage := parseIntWithDefault(c.Query("per_page"), 0)
	return repository.NewPagination(page, perPage)
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
