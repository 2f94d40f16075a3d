package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/recipeverse/internal/billing/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/logger"
	"go.uber.org/zap"
)

const stripeSignatureHeader = "Stripe-Signature"

// HandleBillingWebhook acknowledges every verified delivery that was either
// applied or deliberately skipped. Store failures return 500 so the provider
// redelivers.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	reader := io.Reader(c.Request.Body)
	if s.maxWebhookBody > 0 {
		// One extra byte lets the service detect the overflow.
		reader = io.LimitReader(c.Request.Body, s.maxWebhookBody+1)
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.billingSvc.IngestWebhook(ctx, payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		if errors.Is(err, billingdomain.ErrUnverifiedEvent) {
			logger.FromContext(ctx).Warn("billing webhook rejected", zap.Error(err))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	plan := billingdomain.Plan(strings.ToLower(strings.TrimSpace(c.Query("plan"))))
	session, err := s.billingSvc.CreateCheckout(c.Request.Context(), currentUserID(c), currentEmail(c), plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) CreatePortal(c *gin.Context) {
	session, err := s.billingSvc.CreatePortal(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
