package generation

import (
	"github.com/smallbiznis/recipeverse/internal/generation/provider"
	"go.uber.org/fx"
)

var Module = fx.Module("generation",
	fx.Provide(provider.New),
)
