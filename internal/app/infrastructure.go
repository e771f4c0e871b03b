package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/postoptima-api/internal/billing"
	"github.com/prperemyshlev/postoptima-api/internal/config"
	"github.com/prperemyshlev/postoptima-api/internal/llm"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/prperemyshlev/postoptima-api/migrations"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/prperemyshlev/postoptima-api/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Infrastructure owns the clients that outlive a single request: the
// stores, the upstream model and billing clients, logging and metrics.
type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Model() service.ChatCompleter
	Billing() service.BillingProvider
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	model          *llm.Client
	billing        *billing.Client
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider

	closers []func() error
}

var _ Infrastructure = &infrastructure{}

// NewInfrastructure connects everything in dependency order. On failure the
// pieces opened so far are closed again.
func NewInfrastructure(ctx context.Context, cfg config.Config) (_ *infrastructure, err error) {
	i := &infrastructure{}
	defer func() {
		if err != nil {
			_ = i.close()
		}
	}()

	if i.logger, err = observability.InitLogger(cfg.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if i.postgres, err = database.NewPostgres(cfg.Postgres.DSN(), cfg.Postgres.RLSRole); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.closers = append(i.closers, i.postgres.Close)

	if cfg.Postgres.AutoMigrate {
		if err = database.MigrateUp(ctx, i.postgres.DB, migrations.FS); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		i.logger.Info("Database migrations applied")
	}

	redisOpts, err := database.RedisOptions(cfg.Redis.URL, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	if i.redis, err = database.NewRedis(redisOpts); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.closers = append(i.closers, i.redis.Close)

	if i.meterProvider, i.metricsHandler, err = observability.InitTelemetry(serviceName); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	i.model = llm.NewClient(cfg.LLM)
	i.billing = billing.NewClient(cfg.Stripe)

	i.logger.Info("Infrastructure ready",
		zap.String("env", cfg.Env),
		zap.String("model", cfg.LLM.Model),
	)
	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres         { return i.postgres }
func (i *infrastructure) Redis() *database.Redis               { return i.redis }
func (i *infrastructure) Model() service.ChatCompleter         { return i.model }
func (i *infrastructure) Billing() service.BillingProvider     { return i.billing }
func (i *infrastructure) Logger() *zap.Logger                  { return i.logger }
func (i *infrastructure) MetricsHandler() http.Handler         { return i.metricsHandler }
func (i *infrastructure) MeterProvider() *metric.MeterProvider { return i.meterProvider }

func (i *infrastructure) close() error {
	errs := make([]error, 0, len(i.closers))
	for n := len(i.closers) - 1; n >= 0; n-- {
		errs = append(errs, i.closers[n]())
	}
	i.closers = nil
	return errors.Join(errs...)
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	var telemetryErr error
	if i.meterProvider != nil {
		telemetryErr = observability.Shutdown(ctx, i.meterProvider, i.logger)
	}
	return errors.Join(i.close(), telemetryErr, i.logger.Sync())
}
