package app

import (
	"fmt"
	"net/http"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/brightdoor/listing-studio/external/renderfarm"
	"github.com/brightdoor/listing-studio/external/scriptgen"
	"github.com/brightdoor/listing-studio/internal/config"
	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/infrastructure/repository/memory"
	"github.com/brightdoor/listing-studio/internal/infrastructure/repository/postgres"
	"github.com/brightdoor/listing-studio/internal/interfaces/httpapi"
	"github.com/brightdoor/listing-studio/internal/platform/cache"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
	"github.com/brightdoor/listing-studio/internal/platform/resilience"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

// NewHTTPServer wires repositories, services, external clients, and the HTTP
// router into a ready-to-run server.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}

	registry := newBreakerRegistry(cfg, logger)

	billingRepo, listingRepo, err := newRepositories(cfg, logger)
	if err != nil {
		return nil, err
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	billingService := usecase.NewBillingService(billingRepo, nil, logger)
	listingService := usecase.NewListingService(listingRepo, store, nil)

	scriptClient := scriptgen.NewClient(scriptgen.ClientConfig{
		BaseURL:    cfg.ScriptGenBaseURL,
		APIKey:     cfg.ScriptGenAPIKey,
		Model:      cfg.ScriptGenModel,
		Timeout:    cfg.ScriptGenTimeout,
		MaxRetries: cfg.ScriptGenMaxRetries,
		Logger:     logger,
		Breaker:    registry.Get("ai-provider"),
	})
	renderClient := renderfarm.NewClient(renderfarm.ClientConfig{
		BaseURL:    cfg.RenderBaseURL,
		Token:      cfg.RenderToken,
		Timeout:    cfg.RenderTimeout,
		MaxRetries: cfg.RenderMaxRetries,
		Logger:     logger,
		Breaker:    registry.Get("renderer"),
	})

	generationService := usecase.NewGenerationService(billingService, listingRepo, scriptClient, logger)
	renderService := usecase.NewRenderService(billingService, listingRepo, renderClient, cfg.RenderWorkerCount, logger)

	handler := httpapi.NewHandler(
		billingService,
		generationService,
		renderService,
		listingService,
		registry,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.APIKey, cfg.InternalToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func newBreakerRegistry(cfg config.Config, logger *logging.Logger) *resilience.Registry {
	return resilience.NewRegistry(resilience.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		RecoveryTimeout:  cfg.BreakerRecoveryTimeout,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		CallTimeout:      cfg.BreakerCallTimeout,
		Hooks: resilience.Hooks{
			OnOpen: func(name string, cause error) {
				logger.Warn("circuit breaker opened", "breaker", name, "cause", cause)
			},
			OnHalfOpen: func(name string) {
				logger.Info("circuit breaker probing", "breaker", name)
			},
			OnClose: func(name string) {
				logger.Info("circuit breaker closed", "breaker", name)
			},
		},
	})
}

func newRepositories(cfg config.Config, logger *logging.Logger) (billing.Repository, listing.Repository, error) {
	if cfg.DBURL == "" {
		logger.Info("no DB_URL configured, using in-memory store with dev seed data")
		billingRepo := memory.NewBillingRepository()
		listingRepo := memory.NewListingRepository()
		memory.SeedDev(billingRepo, listingRepo)
		return billingRepo, listingRepo, nil
	}

	db, err := otelsqlx.Connect("postgres", cfg.DBURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithQueryFormatter(traceQuery),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	return postgres.NewBillingRepository(db), postgres.NewListingRepository(db), nil
}
