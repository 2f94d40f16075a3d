package domain

import "context"

type Service interface {
	// IngestWebhook verifies, parses and applies one provider delivery.
	IngestWebhook(ctx context.Context, payload []byte, signature string) (Result, error)
	HandleEvent(ctx context.Context, event *Event) (Result, error)
	CreateCheckout(ctx context.Context, userID, email string, plan Plan) (CheckoutSession, error)
	CreatePortal(ctx context.Context, userID string) (PortalSession, error)
}
