package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
)

type entitlementResponse struct {
	UserID             string                 `json:"user_id"`
	Tier               entitlementdomain.Tier `json:"tier"`
	Credits            int64                  `json:"credits"`
	Unlimited          bool                   `json:"unlimited"`
	LastResetAt        *time.Time             `json:"last_reset_at"`
	UsageCount         int64                  `json:"usage_count"`
	BillingCustomerRef *string                `json:"billing_customer_ref"`
}

func (s *Server) GetEntitlement(c *gin.Context) {
	ent, err := s.entitlementSvc.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entitlementResponse{
		UserID:             ent.UserID,
		Tier:               ent.Tier,
		Credits:            ent.Credits,
		Unlimited:          ent.Unlimited(),
		LastResetAt:        ent.LastResetAt,
		UsageCount:         ent.UsageCount,
		BillingCustomerRef: ent.BillingCustomerRef,
	})
}
