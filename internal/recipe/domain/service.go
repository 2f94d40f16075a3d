package domain

import (
	"context"

	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
)

type AppendRequest struct {
	UserID     string
	Title      string
	Cuisine    string
	Parameters any
	ResultText string
}

type Service interface {
	Append(ctx context.Context, req AppendRequest) (Recipe, error)
	ListForUser(ctx context.Context, userID string, page pagination.Pagination) (ListRecipeResponse, error)
	GetForUser(ctx context.Context, userID, id string) (Recipe, error)
}
