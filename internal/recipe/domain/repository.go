package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, recipe *Recipe) error
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*Recipe, error)
	// ListByUser returns up to page.PageSize+1 rows, newest first.
	ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*Recipe, error)
}
