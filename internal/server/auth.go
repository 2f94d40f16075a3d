package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/recipeverse/internal/config"
	obscontext "github.com/smallbiznis/recipeverse/internal/observability/context"
	"go.uber.org/zap"
)

const (
	contextUserIDKey = "user_id"
	contextEmailKey  = "user_email"

	localUserID    = "local-dev-user"
	localUserEmail = "dev@localhost"

	defaultLeeway = 30 * time.Second
)

// Claims are the identity fields read from the bearer token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier returns nil when no secret is configured.
func NewTokenVerifier(cfg config.Config) *TokenVerifier {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(cfg.AuthIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	if v == nil {
		return nil, ErrUnauthorized
	}
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token missing sub")
	}
	return claims, nil
}

// AuthRequired resolves the caller and makes sure a ledger record exists
// before any handler runs.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, ok := s.authenticate(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID)
		c.Set(contextEmailKey, email)

		if err := s.entitlementSvc.EnsureRecord(ctx, userID); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (string, string, bool) {
	if s.cfg.AuthDisabled {
		return localUserID, localUserEmail, true
	}

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", "", false
	}

	claims, err := s.verifier.Verify(strings.TrimSpace(raw))
	if err != nil {
		s.log.Debug("bearer token rejected", zap.Error(err))
		return "", "", false
	}
	return strings.TrimSpace(claims.Subject), strings.TrimSpace(claims.Email), true
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

func currentEmail(c *gin.Context) string {
	return c.GetString(contextEmailKey)
}
