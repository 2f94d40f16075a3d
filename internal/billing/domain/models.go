package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord deduplicates provider deliveries by (provider, provider_event_id).
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"size:64;not null;uniqueIndex:ux_billing_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"size:191;not null;uniqueIndex:ux_billing_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	UserID          *string        `json:"user_id,omitempty"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	Result          *string        `json:"result,omitempty"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "billing_events" }

type EventKind string

const (
	EventKindActivation   EventKind = "activation"
	EventKindCancellation EventKind = "cancellation"
	EventKindIgnored      EventKind = "ignored"
)

// Event is the canonical billing event produced by provider adapters.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string
	Kind            EventKind
	UserID          string
	CustomerRef     string
	SubscriptionRef string
	OccurredAt      time.Time
	RawPayload      []byte
}

type Result string

const (
	ResultActivated  Result = "activated"
	ResultCancelled  Result = "cancelled"
	ResultIgnored    Result = "ignored"
	ResultUnresolved Result = "unresolved"
	ResultDuplicate  Result = "duplicate"
)

type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

type CheckoutRequest struct {
	UserID      string
	CustomerRef string
	PriceID     string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

type PortalSession struct {
	URL string `json:"url"`
}

// Provider is a payment provider adapter.
type Provider interface {
	Name() string
	// ParseWebhook verifies the signature and converts the payload to an Event.
	ParseWebhook(payload []byte, signature string) (*Event, error)
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (PortalSession, error)
}
