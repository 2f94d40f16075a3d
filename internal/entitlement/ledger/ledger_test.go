package ledger

import (
	"testing"
	"time"

	"github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("u1")
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, domain.TierFree, rec.Tier)
	assert.Equal(t, domain.DailyAllowance, rec.Credits)
	assert.Nil(t, rec.LastResetAt)
	assert.Zero(t, rec.UsageCount)
}

func TestEvaluateFirstRequestResetsAndCharges(t *testing.T) {
	rec, out := Evaluate(NewRecord("u1"), day1)

	require.True(t, out.Admitted)
	assert.Equal(t, int64(2), out.RemainingCredits)
	assert.Equal(t, int64(1), out.UsageCount)
	require.NotNil(t, rec.LastResetAt)
	assert.True(t, rec.LastResetAt.Equal(day1))
}

func TestEvaluateExhaustThenNextDayReset(t *testing.T) {
	rec := NewRecord("u1")
	var out domain.Outcome
	for _, want := range []int64{2, 1, 0} {
		rec, out = Evaluate(rec, day1)
		require.True(t, out.Admitted)
		assert.Equal(t, want, out.RemainingCredits)
	}

	rec, out = Evaluate(rec, day1.Add(time.Hour))
	assert.False(t, out.Admitted)
	assert.Equal(t, domain.DenialNoCredits, out.Reason)
	assert.Equal(t, int64(0), rec.Credits)
	assert.Equal(t, int64(3), rec.UsageCount)

	nextDay := time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	rec, out = Evaluate(rec, nextDay)
	require.True(t, out.Admitted)
	assert.Equal(t, int64(2), out.RemainingCredits)
	assert.True(t, rec.LastResetAt.Equal(nextDay))
}

func TestResetIsIdempotentWithinDay(t *testing.T) {
	rec := NewRecord("u1")
	rec, _ = Evaluate(rec, day1)
	assert.False(t, ResetDue(rec, day1.Add(10*time.Hour)))

	late := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	rec2, out := Evaluate(rec, late)
	require.True(t, out.Admitted)
	assert.Equal(t, int64(1), rec2.Credits)
	assert.True(t, rec2.LastResetAt.Equal(day1))
}

func TestResetUsesUTCDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	last := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	rec := NewRecord("u1")
	rec.LastResetAt = &last

	// 05:00 local on the 15th is still the 14th in UTC.
	assert.False(t, ResetDue(rec, time.Date(2026, 3, 15, 5, 0, 0, 0, jakarta)))
	assert.True(t, ResetDue(rec, time.Date(2026, 3, 15, 8, 0, 0, 0, jakarta)))
}

func TestResetNeverMovesBackwards(t *testing.T) {
	future := day1.Add(48 * time.Hour)
	rec := NewRecord("u1")
	rec.LastResetAt = &future

	assert.False(t, ResetDue(rec, day1))
	rec = ActivatePremium(rec, "cus_1", "sub_1", day1)
	assert.True(t, rec.LastResetAt.Equal(future))
}

func TestChargeRefundSymmetry(t *testing.T) {
	rec := NewRecord("u1")
	rec, _ = Evaluate(rec, day1)
	rec, _ = Evaluate(rec, day1)
	require.Equal(t, int64(1), rec.Credits)

	charged, out := Evaluate(rec, day1)
	require.True(t, out.Admitted)
	refunded := Refund(charged, day1)
	assert.Equal(t, rec.Credits, refunded.Credits)
}

func TestRefundIsNotCapped(t *testing.T) {
	rec, _ := Evaluate(NewRecord("u1"), day1)
	rec = Refund(rec, day1)
	rec = Refund(rec, day1)
	assert.Equal(t, int64(4), rec.Credits)
}

func TestRefundAfterDayBoundaryAddsToFreshAllowance(t *testing.T) {
	lateNight := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	rec := NewRecord("u1")
	for i := 0; i < 3; i++ {
		rec, _ = Evaluate(rec, lateNight)
	}
	require.Equal(t, int64(0), rec.Credits)

	nextDay := lateNight.Add(2 * time.Minute)
	rec = Refund(rec, nextDay)
	assert.Equal(t, domain.DailyAllowance+1, rec.Credits)
	require.NotNil(t, rec.LastResetAt)
	assert.True(t, rec.LastResetAt.Equal(nextDay))

	rec, out := Evaluate(rec, nextDay.Add(time.Minute))
	require.True(t, out.Admitted)
	assert.Equal(t, domain.DailyAllowance, out.RemainingCredits)
}

func TestPremiumNeverDecrementedOrDenied(t *testing.T) {
	rec := ActivatePremium(NewRecord("u1"), "cus_1", "sub_1", day1)
	for i := 0; i < 50; i++ {
		var out domain.Outcome
		rec, out = Evaluate(rec, day1.Add(time.Duration(i)*time.Hour))
		require.True(t, out.Admitted)
		assert.Equal(t, domain.UnlimitedCredits, out.RemainingCredits)
	}
	assert.Equal(t, domain.UnlimitedCredits, Refund(rec, day1).Credits)
}

func TestActivateThenCancel(t *testing.T) {
	rec := NewRecord("u1")
	rec.Credits = 0

	rec = ActivatePremium(rec, "cus_1", "sub_1", day1)
	assert.Equal(t, domain.TierPremium, rec.Tier)
	assert.Equal(t, domain.UnlimitedCredits, rec.Credits)
	require.NotNil(t, rec.BillingCustomerRef)
	assert.Equal(t, "cus_1", *rec.BillingCustomerRef)
	require.NotNil(t, rec.BillingSubscriptionRef)

	rec = Cancel(rec)
	assert.Equal(t, domain.TierFree, rec.Tier)
	assert.Equal(t, int64(3), rec.Credits)
	assert.Nil(t, rec.BillingSubscriptionRef)
	require.NotNil(t, rec.BillingCustomerRef)
}

func TestActivateKeepsExistingRefsWhenEmpty(t *testing.T) {
	cus := "cus_existing"
	rec := NewRecord("u1")
	rec.BillingCustomerRef = &cus

	rec = ActivatePremium(rec, "", "sub_2", day1)
	assert.Equal(t, "cus_existing", *rec.BillingCustomerRef)
	assert.Equal(t, "sub_2", *rec.BillingSubscriptionRef)
}
