package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
)

func parsePagination(c *gin.Context) (pagination.Pagination, error) {
	page := pagination.Pagination{PageToken: strings.TrimSpace(c.Query("page_token"))}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return pagination.Pagination{}, ErrInvalidRequest
		}
		page.PageSize = size
	}
	return page.Normalize(), nil
}
