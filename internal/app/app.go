package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/config"
	"github.com/prperemyshlev/postoptima-api/internal/handler"
	"github.com/prperemyshlev/postoptima-api/internal/repository"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/prperemyshlev/postoptima-api/internal/utils"
	"github.com/prperemyshlev/postoptima-api/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	serviceName     = "postoptima-api"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	auth      *handler.AuthHandler
	analyze   *handler.AnalyzeHandler
	billing   *handler.BillingHandler
	dashboard *handler.DashboardHandler
	extension *handler.ExtensionHandler
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	router, err := NewRouter(infra, cfg)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

// NewRouter wires repositories, services and handlers into a gin engine.
// It is shared by the HTTP server and the Lambda entrypoint.
func NewRouter(infra Infrastructure, cfg *config.Config) (*gin.Engine, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	verifier, err := utils.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWKSURL, cfg.Auth.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	metrics, err := observability.NewAnalysisMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	latestResults := service.NewLatestResultStore(infra.Redis(), cfg.Cache.LatestResultTTL.Duration)
	healthChecker := NewHealthChecker(infra)
	stripeClient := infra.Billing()

	authService := service.NewAuthService(verifier, blacklistService, logger)

	analysisService := service.NewAnalysisService(
		infra.Model(),
		authService,
		repos.Analysis,
		latestResults,
		metrics,
		service.AnalysisConfig{
			Retry: service.RetryPolicy{
				InitialInterval: cfg.Retry.InitialInterval.Duration,
				MaxInterval:     cfg.Retry.MaxInterval.Duration,
				MaxRetries:      cfg.Retry.MaxRetries,
			},
			ModelTimeout: cfg.LLM.Timeout.Duration,
			WriteTimeout: cfg.Postgres.WriteTimeout.Duration,
		},
		logger,
	)

	checkoutService := service.NewCheckoutService(stripeClient, repos.Profile, cfg.Stripe.PriceID, cfg.Server.FrontendURL, logger)
	webhookService := service.NewWebhookService(stripeClient, repos.Profile, logger)
	dashboardService := service.NewDashboardService(repos.Analysis, repos.Profile, latestResults, logger)
	loginRelay := service.NewLoginRelayService(infra.Redis(), cfg.Cache.LoginAttemptTTL.Duration, cfg.Extension.LoginURL, logger)

	h := handlers{
		auth:      handler.NewAuthHandler(authService, logger),
		analyze:   handler.NewAnalyzeHandler(analysisService, logger),
		billing:   handler.NewBillingHandler(checkoutService, webhookService, logger),
		dashboard: handler.NewDashboardHandler(dashboardService, logger),
		extension: handler.NewExtensionHandler(loginRelay, logger),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.HandleMethodNotAllowed = true
	router.NoMethod(handler.MethodNotAllowed)
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, authService, rateLimiter, healthChecker, infra.MetricsHandler(), logger)

	return router, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	limit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteAndIPKey,
		logger,
	)
	requireAuth := handler.AuthMiddleware(authService)
	guard := handler.AuthGuard(authService)

	api := router.Group("/api")
	{
		api.POST("/analyze", limit, h.analyze.Analyze)
		api.POST("/create-checkout", requireAuth, h.billing.CreateCheckout)
		api.POST("/stripe-webhook", h.billing.Webhook)

		auth := api.Group("/auth", requireAuth)
		{
			auth.POST("/logout", h.auth.Logout)
			auth.GET("/me", h.auth.Me)
		}

		pages := api.Group("", guard)
		{
			pages.GET("/dashboard", h.dashboard.Dashboard)
			pages.GET("/profile", h.dashboard.Profile)
			pages.GET("/analytics", h.dashboard.Analytics)
			pages.GET("/results/latest", h.dashboard.LatestResult)
		}

		ext := api.Group("/extension/login-attempts")
		{
			ext.POST("", limit, h.extension.StartLogin)
			ext.GET("/:id", h.extension.PollLogin)
			ext.POST("/:id/complete", requireAuth, h.extension.CompleteLogin)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
