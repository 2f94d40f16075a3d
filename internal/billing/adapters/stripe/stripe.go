package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/recipeverse/internal/billing/domain"
	"github.com/smallbiznis/recipeverse/internal/config"
	"github.com/smallbiznis/recipeverse/internal/observability/tracing"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const providerName = "stripe"

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	HTTPClient *http.Client `optional:"true"`
}

// Adapter talks to Stripe through a dedicated client.API instance.
type Adapter struct {
	api           *client.API
	webhookSecret string
	log           *zap.Logger
}

func New(p Params) domain.Provider {
	cfg := p.Config.Stripe

	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        tracing.WrapHTTPClient(httpClient),
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if url := strings.TrimSpace(cfg.APIBackendURL); url != "" {
		backendCfg.URL = stripe.String(url)
	}

	return &Adapter{
		api:           client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendCfg)),
		webhookSecret: cfg.WebhookSecret,
		log:           p.Log.Named("billing.stripe"),
	}
}

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) ParseWebhook(payload []byte, signature string) (*domain.Event, error) {
	if strings.TrimSpace(a.webhookSecret) == "" || strings.TrimSpace(signature) == "" {
		return nil, domain.ErrUnverifiedEvent
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		a.log.Warn("stripe signature verification failed", zap.Error(err))
		return nil, domain.ErrUnverifiedEvent
	}
	if strings.TrimSpace(event.ID) == "" || event.Data == nil {
		return nil, domain.ErrInvalidEvent
	}

	out := &domain.Event{
		Provider:        providerName,
		ProviderEventID: event.ID,
		Type:            string(event.Type),
		Kind:            domain.EventKindIgnored,
		OccurredAt:      time.Unix(event.Created, 0).UTC(),
		RawPayload:      payload,
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		out.Kind = domain.EventKindActivation
		out.UserID = firstNonEmpty(sess.Metadata["user_id"], subscriptionMetadata(sess.Subscription), sess.ClientReferenceID)
		out.CustomerRef = customerID(sess.Customer)
		if sess.Subscription != nil {
			out.SubscriptionRef = sess.Subscription.ID
		}

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		if sub.Status != stripe.SubscriptionStatusActive && sub.Status != stripe.SubscriptionStatusTrialing {
			return out, nil
		}
		out.Kind = domain.EventKindActivation
		out.UserID = strings.TrimSpace(sub.Metadata["user_id"])
		out.CustomerRef = customerID(sub.Customer)
		out.SubscriptionRef = sub.ID

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, domain.ErrInvalidPayload
		}
		out.Kind = domain.EventKindCancellation
		out.CustomerRef = customerID(sub.Customer)
		out.SubscriptionRef = sub.ID
	}

	return out, nil
}

func (a *Adapter) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: map[string]string{"user_id": userID},
	}
	if email = strings.TrimSpace(email); email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx

	cust, err := a.api.Customers.New(params)
	if err != nil {
		return "", providerError("create customer", err)
	}
	return cust.ID, nil
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(req.CustomerRef),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.AddMetadata("user_id", req.UserID)
	params.Context = ctx

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, providerError("create checkout session", err)
	}
	return domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (a *Adapter) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (domain.PortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := a.api.BillingPortalSessions.New(params)
	if err != nil {
		return domain.PortalSession{}, providerError("create portal session", err)
	}
	return domain.PortalSession{URL: sess.URL}, nil
}

func providerError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %s: %s (%s)", domain.ErrProviderFailure, op, stripeErr.Msg, stripeErr.Code)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderFailure, op, err)
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.ID)
}

func subscriptionMetadata(sub *stripe.Subscription) string {
	if sub == nil {
		return ""
	}
	return sub.Metadata["user_id"]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
