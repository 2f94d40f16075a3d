package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// MutateFunc receives the current record under lock and returns the record to persist.
type MutateFunc func(current Entitlement) (Entitlement, error)

type Repository interface {
	// Mutate creates the record if missing, locks it and persists fn's result
	// in one transaction.
	Mutate(ctx context.Context, db *gorm.DB, userID string, now time.Time, fn MutateFunc) (Entitlement, error)
	Ensure(ctx context.Context, db *gorm.DB, userID string, now time.Time) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Entitlement, error)
	FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*Entitlement, error)
}
