package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/spanner"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/app/propagation/errlog"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_runs"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/resolve_references"
	"github.com/light-bringer/metasync-service/internal/app/propagation/repo"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/apply_change_set"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/clear_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/propagate_definition"
	"github.com/light-bringer/metasync-service/internal/config"
	"github.com/light-bringer/metasync-service/internal/pkg/clock"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
	"github.com/light-bringer/metasync-service/internal/pkg/retry"
	"github.com/light-bringer/metasync-service/internal/platform/shopify"
	grpcpropagation "github.com/light-bringer/metasync-service/internal/transport/grpc/propagation"
	httphandler "github.com/light-bringer/metasync-service/internal/transport/http"
)

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	SpannerClient *spanner.Client
	Dispatcher    *trigger.Dispatcher
	ErrorLog      *errlog.Writer

	AdminHandler *grpcpropagation.Handler
	HTTPHandler  http.Handler
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, cfg config.Config, logger *slog.Logger) (*ServiceOptions, error) {
	logger = obs.OrNop(logger)

	// 1. Initialize Spanner client (run history always lives in Spanner)
	spannerClient, err := spanner.NewClient(ctx, cfg.SpannerDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}

	// 2. Create infrastructure components
	clk := clock.NewRealClock()
	comm := committer.NewCommitter(spannerClient)
	metrics := obs.NewMetrics()

	// 3. Create the catalog backend and the error log store
	catalog, errorLogStore, err := newBackend(cfg, spannerClient, comm)
	if err != nil {
		spannerClient.Close()
		return nil, err
	}
	runRepo := repo.NewRunRepo(spannerClient, comm)
	errorLog := errlog.NewWriter(errorLogStore, cfg.CallTimeout, logger.With("component", "errlog"))

	// 4. Create the propagation engine
	reads := retry.Budget{Attempts: cfg.ReadAttempts(), Timeout: cfg.CallTimeout}
	resolver := resolve_references.NewQuery(catalog, cfg.BacklinkPageSize, reads, logger)
	applyChangeSet := apply_change_set.NewInteractor(catalog, errorLog, cfg.CallTimeout, logger, metrics)
	propagateDefinition := propagate_definition.NewInteractor(
		catalog,
		resolver,
		applyChangeSet,
		runRepo,
		clk,
		propagate_definition.Config{
			Workers:    cfg.WorkerCount,
			RunTimeout: cfg.RunTimeout,
			Reads:      reads,
		},
		logger,
		metrics,
	)
	dispatcher := trigger.NewDispatcher(propagateDefinition, cfg.MaxConcurrentRuns, logger.With("component", "trigger"))

	// 5. Create admin use cases and queries
	clearErrorLog := clear_error_log.NewInteractor(errorLog, logger)
	listErrorLog := list_error_log.NewQuery(errorLog)
	listRuns := list_runs.NewQuery(runRepo)

	// 6. Create transport handlers
	adminHandler := grpcpropagation.NewHandler(propagateDefinition, clearErrorLog, listErrorLog, listRuns)
	httpHandler := httphandler.NewRouter(
		httphandler.NewWebhookHandler(dispatcher, cfg.Shopify.WebhookSecret, logger),
		httphandler.NewAdminHandler(propagateDefinition, listErrorLog, clearErrorLog, listRuns, logger),
		logger,
	)

	return &ServiceOptions{
		SpannerClient: spannerClient,
		Dispatcher:    dispatcher,
		ErrorLog:      errorLog,
		AdminHandler:  adminHandler,
		HTTPHandler:   httpHandler,
	}, nil
}

func newBackend(cfg config.Config, client *spanner.Client, comm *committer.Committer) (contracts.Catalog, contracts.ErrorLog, error) {
	switch cfg.CatalogBackend {
	case config.BackendShopify:
		admin, err := shopify.NewClient(shopify.Config{
			Shop:              cfg.Shopify.Shop,
			AccessToken:       cfg.Shopify.AdminToken,
			APIVersion:        cfg.Shopify.APIVersion,
			RequestsPerSecond: cfg.Shopify.RateLimit,
			HTTPClient: &http.Client{
				Timeout:   cfg.CallTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Shopify client: %w", err)
		}
		return shopify.NewGateway(admin), shopify.NewErrorLog(admin, cfg.ErrorLogNamespace, cfg.ErrorLogKey), nil
	case config.BackendSpanner:
		return repo.NewCatalogRepo(client, comm), repo.NewErrorLogRepo(client, comm, cfg.ShopID), nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", cfg.CatalogBackend)
	}
}

// Close stops intake, waits for in-flight runs until ctx is done, flushes the error log
// and closes all resources.
func (s *ServiceOptions) Close(ctx context.Context) error {
	var errs []error
	if s.Dispatcher != nil {
		errs = append(errs, s.Dispatcher.Close(ctx))
	}
	if s.ErrorLog != nil {
		s.ErrorLog.Close()
	}
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
	return errors.Join(errs...)
}
