package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	cookdomain "github.com/smallbiznis/recipeverse/internal/cook/domain"
	generationdomain "github.com/smallbiznis/recipeverse/internal/generation/domain"
	"github.com/smallbiznis/recipeverse/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonUserRate = "user-rate"

func (s *Server) Generate(c *gin.Context) {
	var params generationdomain.Parameters
	if err := c.ShouldBindJSON(&params); err != nil {
		AbortWithError(c, fmt.Errorf("%w: malformed request body", generationdomain.ErrInvalidInput))
		return
	}

	resp, err := s.cookSvc.Generate(c.Request.Context(), cookdomain.GenerateRequest{
		UserID:     currentUserID(c),
		Parameters: params,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("tier", string(resp.Tier))
	c.JSON(http.StatusOK, resp)
}

// GenerateRateLimit throttles per user before the ledger is touched.
func (s *Server) GenerateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.generateLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decision := s.generateLimiter.Allow(ctx, currentUserID(c))
		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(decision.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		logger.FromContext(ctx).Warn("generate rate limit exceeded", zap.String("reason", rateLimitReasonUserRate))
		s.obsMetrics.RecordRateLimitDenied(ctx, c.FullPath(), rateLimitReasonUserRate)

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		AbortWithError(c, ErrRateLimited)
	}
}
