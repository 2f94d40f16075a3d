package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/cook/domain"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	entitlementrepo "github.com/smallbiznis/recipeverse/internal/entitlement/repository"
	entitlementservice "github.com/smallbiznis/recipeverse/internal/entitlement/service"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
	reciperepo "github.com/smallbiznis/recipeverse/internal/recipe/repository"
	recipeservice "github.com/smallbiznis/recipeverse/internal/recipe/service"
	"github.com/smallbiznis/recipeverse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateway struct {
	calls  int
	err    error
	result generationdomain.Result
	seen   generationdomain.Parameters
}

func (f *fakeGateway) Generate(ctx context.Context, params generationdomain.Parameters) (generationdomain.Result, error) {
	f.calls++
	f.seen = params
	if f.err != nil {
		return generationdomain.Result{}, f.err
	}
	return f.result, nil
}

type fixture struct {
	svc          domain.Service
	db           *gorm.DB
	gateway      *fakeGateway
	entitlements entitlementdomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ents := entitlementservice.New(entitlementservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  entitlementrepo.Provide(),
	})
	recipes := recipeservice.New(recipeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  reciperepo.Provide(),
	})
	gw := &fakeGateway{result: generationdomain.Result{Text: "# Garlic Rice\n...", Title: "Garlic Rice"}}

	return fixture{
		svc: New(Params{
			Log:          zap.NewNop(),
			Clock:        clk,
			Entitlements: ents,
			Gateway:      gw,
			Recipes:      recipes,
		}),
		db:           db,
		gateway:      gw,
		entitlements: ents,
	}
}

func validRequest(userID string) domain.GenerateRequest {
	return domain.GenerateRequest{
		UserID:     userID,
		Parameters: generationdomain.Parameters{Ingredients: []string{"rice", "garlic"}},
	}
}

func TestGenerateChargesAndArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Generate(ctx, validRequest("u1"))
	require.NoError(t, err)
	assert.Equal(t, "Garlic Rice", resp.Title)
	assert.Equal(t, int64(2), resp.CreditsRemaining)
	assert.Equal(t, int64(1), resp.UsageCount)
	assert.Equal(t, entitlementdomain.TierFree, resp.Tier)
	assert.False(t, resp.Unlimited)
	assert.NotEmpty(t, resp.RecipeID)
	assert.Equal(t, "Random", f.gateway.seen.Cuisine)

	testutil.AssertCount(t, f.db, "recipes", 1)
}

func TestGenerateDeniedWithoutCallingGateway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := int64(0); i < entitlementdomain.DailyAllowance; i++ {
		_, err := f.svc.Generate(ctx, validRequest("u1"))
		require.NoError(t, err)
	}

	_, err := f.svc.Generate(ctx, validRequest("u1"))
	assert.ErrorIs(t, err, entitlementdomain.ErrNoCredits)
	assert.Equal(t, int(entitlementdomain.DailyAllowance), f.gateway.calls)
	testutil.AssertCount(t, f.db, "recipes", entitlementdomain.DailyAllowance)
}

func TestGenerateRefundsOnUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Leave a single credit.
	for i := int64(0); i < entitlementdomain.DailyAllowance-1; i++ {
		_, err := f.svc.Generate(ctx, validRequest("u1"))
		require.NoError(t, err)
	}

	f.gateway.err = errors.Join(generationdomain.ErrGeneration, errors.New("503"))
	_, err := f.svc.Generate(ctx, validRequest("u1"))
	assert.ErrorIs(t, err, generationdomain.ErrGeneration)

	ent, err := f.entitlements.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ent.Credits)
	testutil.AssertCount(t, f.db, "recipes", 2)
}

func TestGenerateRefundsOnInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, domain.GenerateRequest{UserID: "u1"})
	assert.ErrorIs(t, err, generationdomain.ErrInvalidInput)
	assert.Zero(t, f.gateway.calls)

	ent, err := f.entitlements.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.DailyAllowance, ent.Credits)
}

func TestGenerateArchiveFailureKeepsResult(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec("DROP TABLE recipes").Error)

	resp, err := f.svc.Generate(context.Background(), validRequest("u1"))
	require.NoError(t, err)
	assert.Equal(t, "Garlic Rice", resp.Title)
	assert.Empty(t, resp.RecipeID)
	assert.Equal(t, int64(2), resp.CreditsRemaining)
}
