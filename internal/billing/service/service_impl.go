package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/internal/billing/domain"
	"github.com/smallbiznis/recipeverse/internal/clock"
	"github.com/smallbiznis/recipeverse/internal/config"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipeverse/internal/observability/metrics"
	"github.com/smallbiznis/recipeverse/internal/ratelimit"
	"github.com/smallbiznis/recipeverse/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Config       config.Config
	Clock        clock.Clock
	Repo         domain.Repository
	Provider     domain.Provider
	Entitlements entitlementdomain.Service
	CustomerLock *ratelimit.CustomerLock `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	cfg          config.StripeConfig
	clock        clock.Clock
	repo         domain.Repository
	provider     domain.Provider
	entitlements entitlementdomain.Service
	customerLock *ratelimit.CustomerLock
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billing.service"),
		genID:        p.GenID,
		cfg:          p.Config.Stripe,
		clock:        p.Clock,
		repo:         p.Repo,
		provider:     p.Provider,
		entitlements: p.Entitlements,
		customerLock: p.CustomerLock,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) (domain.Result, error) {
	if limit := s.cfg.MaxWebhookBody; limit > 0 && int64(len(payload)) > limit {
		return "", domain.ErrPayloadTooLarge
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrUnverifiedEvent) {
			s.log.Warn("billing webhook rejected", zap.String("provider", s.provider.Name()))
			s.obsMetrics.RecordBillingEvent(ctx, s.provider.Name(), "unknown", "unverified")
		}
		return "", err
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent applies one verified event at most once per provider event id.
func (s *Service) HandleEvent(ctx context.Context, event *domain.Event) (domain.Result, error) {
	if event == nil || strings.TrimSpace(event.ProviderEventID) == "" {
		return "", domain.ErrInvalidEvent
	}
	ctx = correlation.ContextWithCorrelationID(ctx, event.ProviderEventID)
	log := logger.WithContext(ctx, s.log).With(
		zap.String("provider", event.Provider),
		zap.String("event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
	)

	if event.Kind == domain.EventKindIgnored || event.Kind == "" {
		log.Debug("billing event ignored")
		s.obsMetrics.RecordBillingEvent(ctx, event.Provider, event.Type, string(domain.ResultIgnored))
		return domain.ResultIgnored, nil
	}

	payload := event.RawPayload
	if !json.Valid(payload) {
		payload = []byte("{}")
	}
	now := s.clock.Now()
	received := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		log.Error("billing event insert failed", zap.Error(err))
		return "", err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return "", err
		}
		if stored == nil {
			return "", domain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			log.Info("billing event already processed")
			s.obsMetrics.RecordBillingEvent(ctx, event.Provider, event.Type, string(domain.ResultDuplicate))
			return domain.ResultDuplicate, nil
		}
	}

	userID, result, err := s.apply(ctx, log, event)
	if err != nil {
		log.Error("billing event handling failed", zap.Error(err))
		s.obsMetrics.RecordBillingEvent(ctx, event.Provider, event.Type, "error")
		return "", err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, userID, result, s.clock.Now()); err != nil {
		log.Error("billing event mark processed failed", zap.Error(err))
		return "", err
	}
	s.obsMetrics.RecordBillingEvent(ctx, event.Provider, event.Type, string(result))
	return result, nil
}

func (s *Service) apply(ctx context.Context, log *zap.Logger, event *domain.Event) (string, domain.Result, error) {
	switch event.Kind {
	case domain.EventKindActivation:
		userID, err := s.resolveActivationUser(ctx, event)
		if err != nil {
			return "", "", err
		}
		if userID == "" {
			log.Warn("billing activation dropped: user not resolvable",
				zap.String("billing_customer_ref", event.CustomerRef))
			return "", domain.ResultUnresolved, nil
		}
		_, err = s.entitlements.ApplyActivation(ctx, entitlementdomain.Activation{
			UserID:          userID,
			CustomerRef:     event.CustomerRef,
			SubscriptionRef: event.SubscriptionRef,
			At:              s.clock.Now(),
		})
		if errors.Is(err, entitlementdomain.ErrCustomerTaken) {
			log.Warn("billing activation dropped: customer linked to another user",
				zap.String("user_id", userID),
				zap.String("billing_customer_ref", event.CustomerRef))
			return "", domain.ResultUnresolved, nil
		}
		if err != nil {
			return "", "", err
		}
		return userID, domain.ResultActivated, nil

	case domain.EventKindCancellation:
		rec, err := s.entitlements.FindByCustomerRef(ctx, event.CustomerRef)
		if err != nil {
			return "", "", err
		}
		if rec == nil {
			log.Warn("billing cancellation dropped: customer not linked",
				zap.String("billing_customer_ref", event.CustomerRef))
			return "", domain.ResultUnresolved, nil
		}
		if _, err := s.entitlements.ApplyCancellation(ctx, rec.UserID); err != nil {
			return "", "", err
		}
		return rec.UserID, domain.ResultCancelled, nil
	}
	return "", domain.ResultIgnored, nil
}

func (s *Service) resolveActivationUser(ctx context.Context, event *domain.Event) (string, error) {
	if userID := strings.TrimSpace(event.UserID); userID != "" {
		return userID, nil
	}
	rec, err := s.entitlements.FindByCustomerRef(ctx, event.CustomerRef)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.UserID, nil
}
