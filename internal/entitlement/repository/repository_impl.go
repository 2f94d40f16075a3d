package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/entitlement/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Mutate(ctx context.Context, db *gorm.DB, userID string, now time.Time, fn domain.MutateFunc) (domain.Entitlement, error) {
	var out domain.Entitlement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insertIfMissing(tx, userID, now); err != nil {
			return err
		}

		var current domain.Entitlement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&current).Error; err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next.UserID = current.UserID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now.UTC()

		if err := tx.Exec(
			`UPDATE entitlements
			 SET credits = ?, tier = ?, last_reset_at = ?, usage_count = ?,
			     billing_customer_ref = ?, billing_subscription_ref = ?, updated_at = ?
			 WHERE user_id = ?`,
			next.Credits,
			next.Tier,
			next.LastResetAt,
			next.UsageCount,
			next.BillingCustomerRef,
			next.BillingSubscriptionRef,
			next.UpdatedAt,
			next.UserID,
		).Error; err != nil {
			return err
		}

		out = next
		return nil
	})
	if err != nil {
		return domain.Entitlement{}, err
	}
	return out, nil
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	return r.insertIfMissing(db.WithContext(ctx), userID, now)
}

func (r *repo) insertIfMissing(db *gorm.DB, userID string, now time.Time) error {
	rec := ledger.NewRecord(userID)
	rec.CreatedAt = now.UTC()
	rec.UpdatedAt = now.UTC()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&rec).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error) {
	return r.findOne(ctx, db, "user_id = ?", userID)
}

func (r *repo) FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*domain.Entitlement, error) {
	return r.findOne(ctx, db, "billing_customer_ref = ?", customerRef)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Entitlement, error) {
	var rec domain.Entitlement
	err := db.WithContext(ctx).Where(where, arg).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
