package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/recipeverse/internal/billing/domain"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/ratelimit"
	"go.uber.org/zap"
)

func (s *Service) CreateCheckout(ctx context.Context, userID, email string, plan domain.Plan) (domain.CheckoutSession, error) {
	priceID, err := s.priceFor(plan)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return domain.CheckoutSession{}, domain.ErrBillingUnavailable
	}

	customerRef, err := s.ensureCustomer(ctx, userID, email)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		UserID:      userID,
		CustomerRef: customerRef,
		PriceID:     priceID,
		SuccessURL:  s.cfg.FrontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.cfg.FrontendURL + "/pricing",
	})
	if err != nil {
		s.log.Error("checkout session failed", zap.String("user_id", userID), zap.Error(err))
		return domain.CheckoutSession{}, err
	}
	return sess, nil
}

func (s *Service) CreatePortal(ctx context.Context, userID string) (domain.PortalSession, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return domain.PortalSession{}, domain.ErrBillingUnavailable
	}
	rec, err := s.entitlements.Get(ctx, userID)
	if err != nil {
		return domain.PortalSession{}, err
	}
	if rec.BillingCustomerRef == nil || *rec.BillingCustomerRef == "" {
		return domain.PortalSession{}, domain.ErrNoBillingCustomer
	}

	sess, err := s.provider.CreatePortalSession(ctx, *rec.BillingCustomerRef, s.cfg.FrontendURL+"/settings/billing")
	if err != nil {
		s.log.Error("portal session failed", zap.String("user_id", userID), zap.Error(err))
		return domain.PortalSession{}, err
	}
	return sess, nil
}

func (s *Service) priceFor(plan domain.Plan) (string, error) {
	var price string
	switch domain.Plan(strings.ToLower(strings.TrimSpace(string(plan)))) {
	case domain.PlanMonthly, "":
		price = s.cfg.PriceMonthly
	case domain.PlanYearly:
		price = s.cfg.PriceYearly
	default:
		return "", domain.ErrInvalidPlan
	}
	if strings.TrimSpace(price) == "" {
		return "", domain.ErrBillingUnavailable
	}
	return price, nil
}

// ensureCustomer returns the stored customer reference, creating one at the
// provider when missing. A redis lock keeps concurrent checkouts from creating
// duplicate customers.
func (s *Service) ensureCustomer(ctx context.Context, userID, email string) (string, error) {
	rec, err := s.entitlements.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec.BillingCustomerRef != nil && *rec.BillingCustomerRef != "" {
		return *rec.BillingCustomerRef, nil
	}

	release, err := s.customerLock.Acquire(ctx, userID)
	switch {
	case errors.Is(err, ratelimit.ErrCustomerLockHeld):
		return "", domain.ErrCheckoutInProgress
	case err != nil:
		s.log.Warn("customer lock unavailable, continuing without it", zap.Error(err))
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("customer lock release failed", zap.Error(err))
			}
		}()
		if s.customerLock != nil {
			rec, err = s.entitlements.Get(ctx, userID)
			if err != nil {
				return "", err
			}
			if rec.BillingCustomerRef != nil && *rec.BillingCustomerRef != "" {
				return *rec.BillingCustomerRef, nil
			}
		}
	}

	customerRef, err := s.provider.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}

	linked, err := s.entitlements.LinkCustomer(ctx, userID, customerRef)
	if err != nil {
		if errors.Is(err, entitlementdomain.ErrCustomerTaken) {
			current, getErr := s.entitlements.Get(ctx, userID)
			if getErr != nil {
				return "", getErr
			}
			if current.BillingCustomerRef != nil {
				return *current.BillingCustomerRef, nil
			}
		}
		return "", err
	}
	return *linked.BillingCustomerRef, nil
}
