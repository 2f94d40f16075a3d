package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/billing"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/cloudmetrics"
	"github.com/smallbiznis/recipeverse/internal/config"
	"github.com/smallbiznis/recipeverse/internal/cook"
	"github.com/smallbiznis/recipeverse/internal/entitlement"
	"github.com/smallbiznis/recipeverse/internal/generation"
	"github.com/smallbiznis/recipeverse/internal/migration"
	"github.com/smallbiznis/recipeverse/internal/observability"
	"github.com/smallbiznis/recipeverse/internal/providers"
	"github.com/smallbiznis/recipeverse/internal/ratelimit"
	"github.com/smallbiznis/recipeverse/internal/recipe"
	"github.com/smallbiznis/recipeverse/internal/server"
	"github.com/smallbiznis/recipeverse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,
		cloudmetrics.Module,
		providers.Module,

		// Domains
		entitlement.Module,
		generation.Module,
		recipe.Module,
		billing.Module,
		cook.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
