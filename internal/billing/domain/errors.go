package domain

import "errors"

var (
	ErrUnverifiedEvent       = errors.New("unverified_billing_event")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrPayloadTooLarge       = errors.New("payload_too_large")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrInvalidPlan           = errors.New("invalid_plan")
	ErrNoBillingCustomer     = errors.New("no_billing_customer")
	ErrBillingUnavailable    = errors.New("billing_not_configured")
	ErrCheckoutInProgress    = errors.New("checkout_in_progress")
	ErrProviderFailure       = errors.New("billing_provider_failure")
)
