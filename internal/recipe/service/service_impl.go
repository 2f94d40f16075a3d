package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("recipe.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, req domain.AppendRequest) (domain.Recipe, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Recipe{}, domain.ErrInvalidUser
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Recipe{}, domain.ErrInvalidTitle
	}

	params := datatypes.JSON("{}")
	if req.Parameters != nil {
		raw, err := json.Marshal(req.Parameters)
		if err != nil {
			return domain.Recipe{}, err
		}
		params = datatypes.JSON(raw)
	}

	recipe := domain.Recipe{
		ID:         s.genID.Generate(),
		UserID:     userID,
		Title:      title,
		Cuisine:    strings.TrimSpace(req.Cuisine),
		Parameters: params,
		ResultText: req.ResultText,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &recipe); err != nil {
		s.log.Error("recipe insert failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Recipe{}, err
	}
	return recipe, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, page pagination.Pagination) (domain.ListRecipeResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ListRecipeResponse{}, domain.ErrInvalidUser
	}
	page = page.Normalize()

	items, err := s.repo.ListByUser(ctx, s.db, userID, page)
	if err != nil {
		return domain.ListRecipeResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(recipe *domain.Recipe) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        recipe.ID.String(),
			CreatedAt: recipe.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	recipes := make([]domain.Recipe, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		recipes = append(recipes, *item)
	}

	resp := domain.ListRecipeResponse{Recipes: recipes}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetForUser(ctx context.Context, userID, id string) (domain.Recipe, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Recipe{}, domain.ErrInvalidUser
	}
	recipeID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || recipeID <= 0 {
		return domain.Recipe{}, domain.ErrInvalidID
	}

	recipe, err := s.repo.FindByID(ctx, s.db, userID, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}
	if recipe == nil {
		return domain.Recipe{}, domain.ErrNotFound
	}
	return *recipe, nil
}
