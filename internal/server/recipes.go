package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/logger"
	"github.com/smallbiznis/recipeverse/internal/providers/pdf"
	recipedomain "github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"go.uber.org/zap"
)

func (s *Server) ListRecipes(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.recipeSvc.ListForUser(c.Request.Context(), currentUserID(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetRecipe(c *gin.Context) {
	recipe, err := s.recipeSvc.GetForUser(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (s *Server) GetRecipePDF(c *gin.Context) {
	ctx := c.Request.Context()
	recipe, err := s.recipeSvc.GetForUser(ctx, currentUserID(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.GenerateRecipeCard(ctx, recipeCard(recipe))
	if err != nil {
		logger.FromContext(ctx).Error("recipe card render failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdf.Filename(recipe.Title)))
	c.Data(http.StatusOK, "application/pdf", body)
}

func recipeCard(recipe recipedomain.Recipe) pdf.RecipeCard {
	card := pdf.RecipeCard{
		Title:      recipe.Title,
		Cuisine:    recipe.Cuisine,
		Body:       recipe.ResultText,
		CreatedAt:  recipe.CreatedAt.UTC().Format(time.DateOnly),
		FooterNote: "Generated by Recipeverse",
	}

	var params generationdomain.Parameters
	if err := json.Unmarshal(recipe.Parameters, &params); err != nil {
		return card
	}
	card.Details = appendDetail(card.Details, "Ingredients", strings.Join(params.Ingredients, ", "))
	card.Details = appendDetail(card.Details, "Dietary", strings.Join(params.Dietary, ", "))
	if params.CookTime > 0 {
		card.Details = appendDetail(card.Details, "Cook time", strconv.Itoa(params.CookTime)+" min")
	}
	if params.SpiceLevel > 0 {
		card.Details = appendDetail(card.Details, "Spice", strconv.Itoa(params.SpiceLevel)+"/5")
	}
	card.Details = appendDetail(card.Details, "Difficulty", params.Difficulty)
	if params.Portions > 0 {
		card.Details = appendDetail(card.Details, "Portions", strconv.Itoa(params.Portions))
	}
	return card
}

func appendDetail(details []pdf.Detail, label, value string) []pdf.Detail {
	if strings.TrimSpace(value) == "" {
		return details
	}
	return append(details, pdf.Detail{Label: label, Value: value})
}
