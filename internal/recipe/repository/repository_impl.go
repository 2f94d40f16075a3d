package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, recipe *domain.Recipe) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO recipes (id, user_id, title, cuisine, parameters, result_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		recipe.ID,
		recipe.UserID,
		recipe.Title,
		recipe.Cuisine,
		recipe.Parameters,
		recipe.ResultText,
		recipe.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.Recipe, error) {
	var recipe domain.Recipe
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, title, cuisine, parameters, result_text, created_at
		 FROM recipes WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&recipe).Error
	if err != nil {
		return nil, err
	}
	if recipe.ID == 0 {
		return nil, nil
	}
	return &recipe, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*domain.Recipe, error) {
	page = page.Normalize()

	stmt := db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("user_id = ?", userID)

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := cursor.CursorTime()
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, errors.Join(pagination.ErrInvalidPageToken, err)
		}
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
	}

	var recipes []*domain.Recipe
	err := stmt.
		Order("created_at desc, id desc").
		Limit(page.PageSize + 1).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}
