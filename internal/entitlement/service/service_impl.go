package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/entitlement/ledger"
	"github.com/smallbiznis/recipeverse/internal/observability/metrics"
	pkgdb "github.com/smallbiznis/recipeverse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Repo          domain.Repository
	Metrics       *metrics.Metrics       `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          domain.Repository
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("entitlement.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

// AuthorizeAndCharge runs reset, admission and charge as one locked update.
// A denial is reported through the Outcome, not as an error.
func (s *Service) AuthorizeAndCharge(ctx context.Context, userID string, now time.Time) (domain.Outcome, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Outcome{}, err
	}

	var outcome domain.Outcome
	_, err = s.mutate(ctx, "charge", userID, now, func(current domain.Entitlement) (domain.Entitlement, error) {
		next, out := ledger.Evaluate(current, now)
		outcome = out
		return next, nil
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	result := "admitted"
	if !outcome.Admitted {
		result = string(outcome.Reason)
	}
	s.metrics.RecordLedgerOutcome(ctx, string(outcome.Tier), result)
	return outcome, nil
}

func (s *Service) Refund(ctx context.Context, userID string) (domain.Entitlement, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Entitlement{}, err
	}
	now := s.clock.Now()
	return s.mutate(ctx, "refund", userID, now, func(current domain.Entitlement) (domain.Entitlement, error) {
		return ledger.Refund(current, now), nil
	})
}

func (s *Service) Get(ctx context.Context, userID string) (domain.Entitlement, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Entitlement{}, err
	}

	rec, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return domain.Entitlement{}, s.persistenceError("get", err)
	}
	if rec == nil {
		return ledger.NewRecord(userID), nil
	}
	// Read-only view of the pending daily reset; the next charge persists it.
	if ledger.ResetDue(*rec, s.clock.Now()) {
		rec.Credits = domain.DailyAllowance
	}
	return *rec, nil
}

func (s *Service) EnsureRecord(ctx context.Context, userID string) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}
	if err := s.repo.Ensure(ctx, s.db, userID, s.clock.Now()); err != nil {
		return s.persistenceError("ensure", err)
	}
	return nil
}

func (s *Service) FindByCustomerRef(ctx context.Context, customerRef string) (*domain.Entitlement, error) {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return nil, nil
	}
	rec, err := s.repo.FindByCustomerRef(ctx, s.db, customerRef)
	if err != nil {
		return nil, s.persistenceError("find_by_customer", err)
	}
	return rec, nil
}

// LinkCustomer stores a billing customer reference without touching tier or credits.
func (s *Service) LinkCustomer(ctx context.Context, userID, customerRef string) (domain.Entitlement, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Entitlement{}, err
	}
	customerRef = strings.TrimSpace(customerRef)
	if err := s.checkCustomerOwner(ctx, userID, customerRef); err != nil {
		return domain.Entitlement{}, err
	}
	return s.mutate(ctx, "link_customer", userID, s.clock.Now(), func(current domain.Entitlement) (domain.Entitlement, error) {
		if current.BillingCustomerRef != nil && *current.BillingCustomerRef != customerRef {
			return current, domain.ErrCustomerTaken
		}
		current.BillingCustomerRef = &customerRef
		return current, nil
	})
}

func (s *Service) ApplyActivation(ctx context.Context, activation domain.Activation) (domain.Entitlement, error) {
	userID, err := normalizeUserID(activation.UserID)
	if err != nil {
		return domain.Entitlement{}, err
	}
	at := activation.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	if err := s.checkCustomerOwner(ctx, userID, activation.CustomerRef); err != nil {
		return domain.Entitlement{}, err
	}

	rec, err := s.mutate(ctx, "activate", userID, at, func(current domain.Entitlement) (domain.Entitlement, error) {
		return ledger.ActivatePremium(current, activation.CustomerRef, activation.SubscriptionRef, at), nil
	})
	if err != nil {
		return domain.Entitlement{}, err
	}
	s.log.Info("entitlement activated",
		zap.String("user_id", userID),
		zap.String("billing_subscription_ref", activation.SubscriptionRef),
	)
	return rec, nil
}

func (s *Service) ApplyCancellation(ctx context.Context, userID string) (domain.Entitlement, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.Entitlement{}, err
	}

	rec, err := s.mutate(ctx, "cancel", userID, s.clock.Now(), func(current domain.Entitlement) (domain.Entitlement, error) {
		return ledger.Cancel(current), nil
	})
	if err != nil {
		return domain.Entitlement{}, err
	}
	s.log.Info("entitlement cancelled", zap.String("user_id", userID))
	return rec, nil
}

// checkCustomerOwner rejects a customer reference already linked to another user.
func (s *Service) checkCustomerOwner(ctx context.Context, userID, customerRef string) error {
	owner, err := s.FindByCustomerRef(ctx, customerRef)
	if err != nil {
		return err
	}
	if owner != nil && owner.UserID != userID {
		return domain.ErrCustomerTaken
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, op, userID string, now time.Time, fn domain.MutateFunc) (domain.Entitlement, error) {
	start := time.Now()
	rec, err := s.repo.Mutate(ctx, s.db, userID, now, fn)
	s.ledgerMetrics.ObserveMutate(op, time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrCustomerTaken) {
			return domain.Entitlement{}, err
		}
		// Lost race on ux_entitlements_billing_customer_ref.
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Entitlement{}, fmt.Errorf("%w: %s", domain.ErrCustomerTaken, op)
		}
		return domain.Entitlement{}, s.persistenceError(op, err)
	}
	return rec, nil
}

func (s *Service) persistenceError(op string, err error) error {
	reason := s.ledgerMetrics.RecordStoreError(op, err)
	s.log.Error("entitlement store failure",
		zap.String("operation", op),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domain.ErrInvalidUser
	}
	return userID, nil
}
