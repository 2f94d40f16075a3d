// Package ledger holds the credit rules as pure functions over entitlement
// records. Callers persist the returned record atomically.
package ledger

import (
	"time"

	"github.com/smallbiznis/recipeverse/internal/entitlement/domain"
)

// NewRecord returns the initial FREE record for a first-contact user.
func NewRecord(userID string) domain.Entitlement {
	return domain.Entitlement{
		UserID:  userID,
		Credits: domain.DailyAllowance,
		Tier:    domain.TierFree,
	}
}

// ResetDue reports whether a FREE record has not yet been reset on now's UTC day.
func ResetDue(rec domain.Entitlement, now time.Time) bool {
	if rec.Tier != domain.TierFree {
		return false
	}
	if rec.LastResetAt == nil {
		return true
	}
	return utcDay(*rec.LastResetAt).Before(utcDay(now))
}

// Evaluate applies the daily reset, admission and charge for one request.
func Evaluate(rec domain.Entitlement, now time.Time) (domain.Entitlement, domain.Outcome) {
	rec = applyReset(rec, now)

	if rec.Tier == domain.TierPremium {
		return rec, domain.Outcome{
			Admitted:         true,
			Tier:             rec.Tier,
			RemainingCredits: rec.Credits,
			UsageCount:       rec.UsageCount,
		}
	}

	if rec.Credits <= 0 {
		return rec, domain.Outcome{
			Reason:     domain.DenialNoCredits,
			Tier:       rec.Tier,
			UsageCount: rec.UsageCount,
		}
	}

	rec.Credits--
	rec.UsageCount++
	return rec, domain.Outcome{
		Admitted:         true,
		Tier:             rec.Tier,
		RemainingCredits: rec.Credits,
		UsageCount:       rec.UsageCount,
	}
}

// Refund returns one credit to a FREE record. A pending daily reset is applied
// first, so a refund that crosses the UTC day boundary adds to the fresh
// allowance. The balance is not capped.
func Refund(rec domain.Entitlement, now time.Time) domain.Entitlement {
	if rec.Tier != domain.TierFree {
		return rec
	}
	rec = applyReset(rec, now)
	rec.Credits++
	return rec
}

func ActivatePremium(rec domain.Entitlement, customerRef, subscriptionRef string, now time.Time) domain.Entitlement {
	rec.Tier = domain.TierPremium
	rec.Credits = domain.UnlimitedCredits
	if customerRef != "" {
		rec.BillingCustomerRef = &customerRef
	}
	if subscriptionRef != "" {
		rec.BillingSubscriptionRef = &subscriptionRef
	}
	rec.LastResetAt = advance(rec.LastResetAt, now)
	return rec
}

// Cancel reverts a record to FREE with a fresh allowance. The customer
// reference is kept so a later checkout reuses it.
func Cancel(rec domain.Entitlement) domain.Entitlement {
	rec.Tier = domain.TierFree
	rec.Credits = domain.DailyAllowance
	rec.BillingSubscriptionRef = nil
	return rec
}

func applyReset(rec domain.Entitlement, now time.Time) domain.Entitlement {
	if ResetDue(rec, now) {
		rec.Credits = domain.DailyAllowance
		rec.LastResetAt = advance(rec.LastResetAt, now)
	}
	return rec
}

// advance never moves last_reset_at backwards.
func advance(current *time.Time, now time.Time) *time.Time {
	now = now.UTC()
	if current != nil && current.After(now) {
		return current
	}
	return &now
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
