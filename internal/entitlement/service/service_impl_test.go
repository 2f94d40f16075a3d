package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/entitlement/repository"
	"github.com/smallbiznis/recipeverse/internal/observability/metrics"
	"github.com/smallbiznis/recipeverse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var day1 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.SetupDB(t)
	clk := clock.NewFakeClock(day1)
	ledgerMetrics, err := metrics.NewLedgerMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		Clock:         clk,
		Repo:          repository.Provide(),
		LedgerMetrics: ledgerMetrics,
	}).(*Service)
	return svc, db, clk
}

func TestAuthorizeAndChargeCreatesRecordOnFirstContact(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	out, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
	require.NoError(t, err)
	assert.True(t, out.Admitted)
	assert.Equal(t, int64(2), out.RemainingCredits)
	assert.Equal(t, int64(1), out.UsageCount)
	testutil.AssertCount(t, db, "entitlements", 1)

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Credits)
	require.NotNil(t, rec.LastResetAt)
	assert.True(t, rec.LastResetAt.Equal(day1))
}

func TestAuthorizeAndChargeDailyScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, want := range []int64{2, 1, 0} {
		out, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
		require.NoError(t, err)
		require.True(t, out.Admitted)
		assert.Equal(t, want, out.RemainingCredits)
	}

	out, err := svc.AuthorizeAndCharge(ctx, "u1", day1.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, out.Admitted)
	assert.Equal(t, domain.DenialNoCredits, out.Reason)

	out, err = svc.AuthorizeAndCharge(ctx, "u1", day1.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, out.Admitted)
	assert.Equal(t, int64(2), out.RemainingCredits)
	assert.Equal(t, int64(4), out.UsageCount)
}

func TestAuthorizeAndChargeConcurrentExhaustion(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const workers = 16
	var admitted atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
			if err != nil {
				errs <- err
				return
			}
			if out.Admitted {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, domain.DailyAllowance, admitted.Load())
	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Credits)
	assert.Equal(t, domain.DailyAllowance, rec.UsageCount)
}

func TestChargeThenRefundRestoresBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
		require.NoError(t, err)
	}

	out, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
	require.NoError(t, err)
	require.Equal(t, int64(0), out.RemainingCredits)

	rec, err := svc.Refund(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Credits)
	assert.Equal(t, int64(3), rec.UsageCount)
}

func TestPremiumIsNeverDecremented(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyActivation(ctx, domain.Activation{UserID: "u1", CustomerRef: "cus_1", SubscriptionRef: "sub_1", At: day1})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		out, err := svc.AuthorizeAndCharge(ctx, "u1", day1.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.True(t, out.Admitted)
		assert.Equal(t, domain.UnlimitedCredits, out.RemainingCredits)
	}

	rec, err := svc.Refund(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UnlimitedCredits, rec.Credits)
}

func TestActivationThenCancellation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
		require.NoError(t, err)
	}

	rec, err := svc.ApplyActivation(ctx, domain.Activation{UserID: "u1", CustomerRef: "cus_1", SubscriptionRef: "sub_1", At: day1})
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, rec.Tier)
	assert.True(t, rec.Unlimited())

	found, err := svc.FindByCustomerRef(ctx, "cus_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "u1", found.UserID)

	rec, err = svc.ApplyCancellation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, rec.Tier)
	assert.Equal(t, int64(3), rec.Credits)
	assert.Nil(t, rec.BillingSubscriptionRef)

	stored, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, stored.BillingSubscriptionRef)
	require.NotNil(t, stored.BillingCustomerRef)
	assert.Equal(t, "cus_1", *stored.BillingCustomerRef)
}

func TestEnsureRecordIsIdempotent(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureRecord(ctx, "u1"))
	_, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
	require.NoError(t, err)
	require.NoError(t, svc.EnsureRecord(ctx, "u1"))

	testutil.AssertCount(t, db, "entitlements", 1)
	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Credits)
}

func TestGetUnknownUserReturnsFreshRecordWithoutPersisting(t *testing.T) {
	svc, db, _ := newTestService(t)

	rec, err := svc.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, rec.Tier)
	assert.Equal(t, domain.DailyAllowance, rec.Credits)
	testutil.AssertCount(t, db, "entitlements", 0)
}

func TestLinkCustomerRejectsDifferentRef(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.LinkCustomer(ctx, "u1", "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, rec.Tier)

	_, err = svc.LinkCustomer(ctx, "u1", "cus_1")
	require.NoError(t, err)

	_, err = svc.LinkCustomer(ctx, "u1", "cus_2")
	assert.ErrorIs(t, err, domain.ErrCustomerTaken)
}

func TestBlankUserIsRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AuthorizeAndCharge(context.Background(), "  ", day1)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestStoreFailureIsPersistenceError(t *testing.T) {
	svc, db, _ := newTestService(t)
	require.NoError(t, db.Exec(`DROP TABLE entitlements`).Error)

	_, err := svc.AuthorizeAndCharge(context.Background(), "u1", day1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}

func TestGetProjectsPendingDailyReset(t *testing.T) {
	svc, db, clk := newTestService(t)
	ctx := context.Background()

	for i := int64(0); i < domain.DailyAllowance; i++ {
		_, err := svc.AuthorizeAndCharge(ctx, "u1", day1)
		require.NoError(t, err)
	}
	clk.Advance(24 * time.Hour)

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DailyAllowance, rec.Credits)

	var stored int64
	require.NoError(t, db.Raw(`SELECT credits FROM entitlements WHERE user_id = ?`, "u1").Scan(&stored).Error)
	assert.Zero(t, stored)
}

func TestRefundAfterDayBoundaryAddsToFreshBalance(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	lateNight := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)

	for i := int64(0); i < domain.DailyAllowance; i++ {
		_, err := svc.AuthorizeAndCharge(ctx, "u1", lateNight)
		require.NoError(t, err)
	}

	nextDay := lateNight.Add(2 * time.Minute)
	clk.Set(nextDay)
	rec, err := svc.Refund(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DailyAllowance+1, rec.Credits)
	require.NotNil(t, rec.LastResetAt)
	assert.True(t, rec.LastResetAt.Equal(nextDay))

	out, err := svc.AuthorizeAndCharge(ctx, "u1", nextDay.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, out.Admitted)
	assert.Equal(t, domain.DailyAllowance, out.RemainingCredits)
}

func TestActivationRejectsCustomerLinkedToAnotherUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.LinkCustomer(ctx, "u1", "cus_1")
	require.NoError(t, err)

	_, err = svc.ApplyActivation(ctx, domain.Activation{UserID: "u2", CustomerRef: "cus_1", At: day1})
	assert.ErrorIs(t, err, domain.ErrCustomerTaken)
	assert.False(t, errors.Is(err, domain.ErrPersistence))

	_, err = svc.LinkCustomer(ctx, "u2", "cus_1")
	assert.ErrorIs(t, err, domain.ErrCustomerTaken)

	rec, err := svc.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, rec.Tier)
}
