package service

import (
	"context"

	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/cook/domain"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipeverse/internal/observability/metrics"
	recipedomain "github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Entitlements entitlementdomain.Service
	Gateway      generationdomain.Gateway
	Recipes      recipedomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	entitlements entitlementdomain.Service
	gateway      generationdomain.Gateway
	recipes      recipedomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("cook.service"),
		clock:        p.Clock,
		entitlements: p.Entitlements,
		gateway:      p.Gateway,
		recipes:      p.Recipes,
		obsMetrics:   p.ObsMetrics,
	}
}

// Generate charges first, calls the gateway with no store lock held and
// refunds when validation or the upstream call fails.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	log := logger.WithUser(logger.WithContext(ctx, s.log), req.UserID)

	outcome, err := s.entitlements.AuthorizeAndCharge(ctx, req.UserID, s.clock.Now())
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	if !outcome.Admitted {
		log.Info("generation denied", zap.String("reason", string(outcome.Reason)))
		return domain.GenerateResponse{}, entitlementdomain.ErrNoCredits
	}

	params, err := req.Parameters.Normalize()
	if err != nil {
		s.refund(ctx, log, req.UserID, "invalid_input")
		return domain.GenerateResponse{}, err
	}

	result, err := s.gateway.Generate(ctx, params)
	if err != nil {
		s.refund(ctx, log, req.UserID, "upstream_generation_failure")
		s.obsMetrics.RecordGeneration(ctx, "failed")
		return domain.GenerateResponse{}, err
	}
	s.obsMetrics.RecordGeneration(ctx, "succeeded")

	resp := domain.GenerateResponse{
		ResultText:       result.Text,
		Title:            result.Title,
		CreditsRemaining: outcome.RemainingCredits,
		Unlimited:        outcome.Tier == entitlementdomain.TierPremium,
		Tier:             outcome.Tier,
		UsageCount:       outcome.UsageCount,
	}

	// The charge stands once text was produced, so an archive failure is logged only.
	recipe, err := s.recipes.Append(context.WithoutCancel(ctx), recipedomain.AppendRequest{
		UserID:     req.UserID,
		Title:      result.Title,
		Cuisine:    params.Cuisine,
		Parameters: params,
		ResultText: result.Text,
	})
	if err != nil {
		log.Error("recipe archive failed", zap.Error(err))
		return resp, nil
	}
	resp.RecipeID = recipe.ID.String()
	return resp, nil
}

func (s *Service) refund(ctx context.Context, log *zap.Logger, userID, reason string) {
	if _, err := s.entitlements.Refund(context.WithoutCancel(ctx), userID); err != nil {
		log.Error("credit refund failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	s.obsMetrics.RecordRefund(ctx, reason)
}
