package domain

import (
	"context"
	"time"
)

type Service interface {
	AuthorizeAndCharge(ctx context.Context, userID string, now time.Time) (Outcome, error)
	Refund(ctx context.Context, userID string) (Entitlement, error)
	Get(ctx context.Context, userID string) (Entitlement, error)
	EnsureRecord(ctx context.Context, userID string) error
	FindByCustomerRef(ctx context.Context, customerRef string) (*Entitlement, error)
	LinkCustomer(ctx context.Context, userID, customerRef string) (Entitlement, error)
	ApplyActivation(ctx context.Context, activation Activation) (Entitlement, error)
	ApplyCancellation(ctx context.Context, userID string) (Entitlement, error)
}
