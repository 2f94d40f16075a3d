package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

// RecipeCard is the printable view of an archived recipe.
type RecipeCard struct {
	Title      string
	Cuisine    string
	Details    []Detail
	Body       string
	CreatedAt  string
	FooterNote string
}

type Detail struct {
	Label string
	Value string
}

type Provider interface {
	GenerateRecipeCard(ctx context.Context, card RecipeCard) (io.Reader, error)
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)
