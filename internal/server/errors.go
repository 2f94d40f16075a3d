package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/recipeverse/internal/billing/domain"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
	recipedomain "github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate_limited")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not_found")
	ErrInternal           = errors.New("internal_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

type errorMapping struct {
	target  error
	status  int
	kind    string
	message string
	// exposeCause returns err.Error() as the message. Only set for input
	// errors whose text is written for the caller.
	exposeCause bool
}

var errorMappings = []errorMapping{
	{entitlementdomain.ErrNoCredits, http.StatusForbidden, "no_credits", "no credits remaining today", false},
	{generationdomain.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "", true},
	{generationdomain.ErrGeneration, http.StatusBadGateway, "upstream_generation_failure", "recipe generation failed, your credit was refunded", false},
	{entitlementdomain.ErrPersistence, http.StatusInternalServerError, "persistence_failure", "could not update your credits", false},
	{billingdomain.ErrUnverifiedEvent, http.StatusBadRequest, "unverified_billing_event", "webhook signature verification failed", false},
	{billingdomain.ErrInvalidPayload, http.StatusBadRequest, "invalid_request", "invalid webhook payload", false},
	{billingdomain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook payload too large", false},
	{billingdomain.ErrInvalidPlan, http.StatusBadRequest, "invalid_request", "plan must be monthly or yearly", false},
	{billingdomain.ErrNoBillingCustomer, http.StatusBadRequest, "invalid_request", "no billing account on file", false},
	{billingdomain.ErrCheckoutInProgress, http.StatusConflict, "conflict", "a checkout is already being prepared", false},
	{billingdomain.ErrProviderFailure, http.StatusBadGateway, "billing_provider_failure", "billing provider request failed", false},
	{billingdomain.ErrBillingUnavailable, http.StatusServiceUnavailable, "service_unavailable", "billing is not configured", false},
	{ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized", false},
	{entitlementdomain.ErrInvalidUser, http.StatusUnauthorized, "unauthorized", "unauthorized", false},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many requests", false},
	{recipedomain.ErrNotFound, http.StatusNotFound, "not_found", "not found", false},
	{ErrNotFound, http.StatusNotFound, "not_found", "not found", false},
	{recipedomain.ErrInvalidID, http.StatusNotFound, "not_found", "not found", false},
	{pagination.ErrInvalidPageToken, http.StatusBadRequest, "invalid_request", "invalid page token", false},
	{ErrInvalidRequest, http.StatusBadRequest, "invalid_request", "invalid request", false},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable", "service unavailable", false},
}

func mapError(err error) (int, errorPayload) {
	if err != nil {
		for _, m := range errorMappings {
			if !errors.Is(err, m.target) {
				continue
			}
			message := m.message
			if m.exposeCause {
				message = err.Error()
			}
			return m.status, errorPayload{Type: m.kind, Message: message}
		}
	}
	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the request logger's error_type and error_code fields.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
	}
}
