package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"github.com/smallbiznis/recipeverse/internal/recipe/repository"
	"github.com/smallbiznis/recipeverse/internal/testutil"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    testutil.SetupDB(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func TestAppendAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Append(ctx, domain.AppendRequest{
		UserID:     "u1",
		Title:      "Lime Chicken",
		Cuisine:    "Thai",
		Parameters: map[string]any{"portions": 2},
		ResultText: "# Lime Chicken",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := svc.GetForUser(ctx, "u1", created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Lime Chicken", got.Title)
	assert.JSONEq(t, `{"portions":2}`, string(got.Parameters))

	_, err = svc.GetForUser(ctx, "u2", created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetForUser(ctx, "u1", "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListForUserPaginatesNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Append(ctx, domain.AppendRequest{UserID: "u1", Title: fmt.Sprintf("Recipe %d", i), ResultText: "x"})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}
	_, err := svc.Append(ctx, domain.AppendRequest{UserID: "u2", Title: "Other", ResultText: "x"})
	require.NoError(t, err)

	first, err := svc.ListForUser(ctx, "u1", pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Recipes, 2)
	assert.Equal(t, "Recipe 5", first.Recipes[0].Title)
	assert.Equal(t, "Recipe 4", first.Recipes[1].Title)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.ListForUser(ctx, "u1", pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Recipes, 2)
	assert.Equal(t, "Recipe 3", second.Recipes[0].Title)

	third, err := svc.ListForUser(ctx, "u1", pagination.Pagination{PageSize: 2, PageToken: second.NextPageToken})
	require.NoError(t, err)
	require.Len(t, third.Recipes, 1)
	assert.Equal(t, "Recipe 1", third.Recipes[0].Title)
	assert.False(t, third.HasMore)
	assert.Empty(t, third.NextPageToken)
}

func TestListForUserRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListForUser(context.Background(), "u1", pagination.Pagination{PageToken: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestAppendRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Append(context.Background(), domain.AppendRequest{UserID: "u1", Title: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
}
