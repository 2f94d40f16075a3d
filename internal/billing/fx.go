package billing

import (
	"github.com/smallbiznis/recipeverse/internal/billing/adapters/stripe"
	"github.com/smallbiznis/recipeverse/internal/billing/repository"
	"github.com/smallbiznis/recipeverse/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.New),
	fx.Provide(service.New),
)
