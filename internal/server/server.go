package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/recipeverse/internal/billing/domain"
	"github.com/smallbiznis/recipeverse/internal/config"
	cookdomain "github.com/smallbiznis/recipeverse/internal/cook/domain"
	entitlementdomain "github.com/smallbiznis/recipeverse/internal/entitlement/domain"
	"github.com/smallbiznis/recipeverse/internal/observability"
	obslogger "github.com/smallbiznis/recipeverse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recipeverse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/recipeverse/internal/observability/tracing"
	"github.com/smallbiznis/recipeverse/internal/providers/pdf"
	"github.com/smallbiznis/recipeverse/internal/ratelimit"
	recipedomain "github.com/smallbiznis/recipeverse/internal/recipe/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewTokenVerifier),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// generateThrottle is satisfied by *ratelimit.GenerateLimiter.
type generateThrottle interface {
	Allow(ctx context.Context, userID string) ratelimit.Decision
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	verifier        *TokenVerifier
	entitlementSvc  entitlementdomain.Service
	cookSvc         cookdomain.Service
	recipeSvc       recipedomain.Service
	billingSvc      billingdomain.Service
	pdf             pdf.Provider
	generateLimiter generateThrottle
	obsMetrics      *obsmetrics.Metrics
	maxWebhookBody  int64
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Verifier        *TokenVerifier
	EntitlementSvc  entitlementdomain.Service
	CookSvc         cookdomain.Service
	RecipeSvc       recipedomain.Service
	BillingSvc      billingdomain.Service
	PDF             pdf.Provider
	GenerateLimiter *ratelimit.GenerateLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		verifier:       p.Verifier,
		entitlementSvc: p.EntitlementSvc,
		cookSvc:        p.CookSvc,
		recipeSvc:      p.RecipeSvc,
		billingSvc:     p.BillingSvc,
		pdf:            p.PDF,
		obsMetrics:     p.ObsMetrics,
		maxWebhookBody: p.Cfg.Stripe.MaxWebhookBody,
	}
	if p.GenerateLimiter != nil {
		svc.generateLimiter = p.GenerateLimiter
	}
	if p.Cfg.AuthDisabled {
		svc.log.Warn("authentication disabled, all requests act as the local user", zap.String("user_id", localUserID))
	} else if p.Verifier == nil {
		svc.log.Warn("AUTH_JWT_SECRET is empty, authenticated routes will reject every request")
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	// Stripe signs the raw body; this route must stay outside auth.
	s.engine.POST("/billing/webhook", s.HandleBillingWebhook)

	authed := s.engine.Group("/", s.AuthRequired())
	authed.POST("/generate", s.GenerateRateLimit(), s.Generate)
	authed.GET("/entitlement", s.GetEntitlement)

	authed.GET("/recipes", s.ListRecipes)
	authed.GET("/recipes/:id", s.GetRecipe)
	authed.GET("/recipes/:id/pdf", s.GetRecipePDF)

	authed.POST("/billing/checkout", s.CreateCheckout)
	authed.POST("/billing/portal", s.CreatePortal)
}
