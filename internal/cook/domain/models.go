package domain

import (
	"context"

	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
)

type GenerateRequest struct {
	UserID     string
	Parameters generationdomain.Parameters
}

type GenerateResponse struct {
	ResultText       string                 `json:"result_text"`
	Title            string                 `json:"title"`
	CreditsRemaining int64                  `json:"credits_remaining"`
	Unlimited        bool                   `json:"unlimited"`
	Tier             entitlementdomain.Tier `json:"tier"`
	UsageCount       int64                  `json:"usage_count"`
	RecipeID         string                 `json:"recipe_id,omitempty"`
}

// Service runs the charge, generate and archive sequence for one request.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}
