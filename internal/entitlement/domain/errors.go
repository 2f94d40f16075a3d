package domain

import "errors"

var (
	ErrNoCredits     = errors.New("no_credits")
	ErrPersistence   = errors.New("persistence_failure")
	ErrInvalidUser   = errors.New("invalid_user")
	ErrNotFound      = errors.New("entitlement_not_found")
	ErrCustomerTaken = errors.New("billing_customer_already_linked")
)
