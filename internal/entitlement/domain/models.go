package domain

import (
	"math"
	"time"
)

type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
)

const (
	// DailyAllowance is the FREE credit balance restored once per UTC day.
	DailyAllowance int64 = 3
	// UnlimitedCredits is stored for PREMIUM records. It is never decremented.
	UnlimitedCredits int64 = math.MaxInt32
)

type Entitlement struct {
	UserID                 string     `gorm:"column:user_id;primaryKey;size:191" json:"user_id"`
	Credits                int64      `gorm:"column:credits;not null" json:"credits"`
	Tier                   Tier       `gorm:"column:tier;not null" json:"tier"`
	LastResetAt            *time.Time `gorm:"column:last_reset_at" json:"last_reset_at,omitempty"`
	UsageCount             int64      `gorm:"column:usage_count;not null" json:"usage_count"`
	BillingCustomerRef     *string    `gorm:"column:billing_customer_ref;size:191;uniqueIndex:ux_entitlements_billing_customer_ref" json:"billing_customer_ref,omitempty"`
	BillingSubscriptionRef *string    `gorm:"column:billing_subscription_ref" json:"billing_subscription_ref,omitempty"`
	CreatedAt              time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Entitlement) TableName() string { return "entitlements" }

func (e Entitlement) Unlimited() bool {
	return e.Tier == TierPremium
}

type DenialReason string

const DenialNoCredits DenialReason = "no_credits"

// Outcome is the result of an authorize-and-charge attempt.
type Outcome struct {
	Admitted         bool
	Reason           DenialReason
	Tier             Tier
	RemainingCredits int64
	UsageCount       int64
}

// Activation carries the references attached when a user becomes PREMIUM.
type Activation struct {
	UserID          string
	CustomerRef     string
	SubscriptionRef string
	At              time.Time
}
