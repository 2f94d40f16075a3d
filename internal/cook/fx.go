package cook

import (
	"github.com/smallbiznis/recipeverse/internal/cook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cook.service",
	fx.Provide(service.New),
)
