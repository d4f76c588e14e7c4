// Package main is the entry point for the ShiftWise console server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/capability"
	"github.com/shiftwise/console/internal/config"
	"github.com/shiftwise/console/internal/controller"
	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/lookup"
	"github.com/shiftwise/console/internal/observability"
	"github.com/shiftwise/console/internal/openapi"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/internal/screen"
	"github.com/shiftwise/console/internal/transport"
	"github.com/shiftwise/console/internal/wizard"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "shiftwise-console", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// OpenAPI index: one spec per backend service.
	oaIndex := openapi.NewIndex()
	specSources := buildSpecSources(cfg.Specs, cfg.Services)
	if err := oaIndex.Load(specSources); err != nil {
		logger.Error("OpenAPI index load failed", zap.Error(err))
		return 1
	}
	for _, src := range specSources {
		metrics.SetOpenAPIOperationsIndexed(src.ServiceID, float64(len(oaIndex.AllOperationIDs(src.ServiceID))))
	}

	// Screen definitions: load, validate against the index, build registry.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directories)
	if err != nil {
		logger.Error("definition loading failed", zap.Error(err))
		return 1
	}

	validator := definition.NewValidator()
	if verrs := validator.Validate(defs, oaIndex); len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("definition validation error", zap.String("error", ve.Error()))
		}
		logger.Error("definition validation failed", zap.Int("errors", len(verrs)))
		return 1
	}

	registry := definition.NewRegistry(defs)
	metrics.SetDefinitionsLoaded(float64(len(defs)))

	capResolver, err := buildCapabilityResolver(cfg.Capability)
	if err != nil {
		logger.Error("capability resolver initialization failed", zap.Error(err))
		return 1
	}

	wizardStore, wizardCloser, err := buildWizardStore(ctx, cfg.Wizard, logger)
	if err != nil {
		logger.Error("wizard store initialization failed", zap.Error(err))
		return 1
	}

	idemStore, idemCloser, err := buildIdempotencyStore(ctx, cfg.Idempotency, logger)
	if err != nil {
		logger.Error("idempotency store initialization failed", zap.Error(err))
		return 1
	}

	invoker := resource.NewInvoker(oaIndex, cfg.Services, logger)

	sessions := controller.NewManager(
		registry, invoker, idemStore,
		cfg.Idempotency.Store.DefaultTTL,
		cfg.Session.IdleTimeout,
		logger,
	)
	wizards := wizard.NewEngine(registry, wizardStore, invoker, capResolver, logger)

	screens := screen.NewProvider(registry)
	menu := screen.NewMenuProvider(registry, invoker, logger)
	lookups := lookup.NewProvider(registry, invoker, cfg.Lookup.Cache.TTL, cfg.Lookup.Cache.MaxEntries)

	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)

	ready := observability.ReadinessChecks{
		DefinitionsLoaded: func() bool { return len(registry.AllDomains()) > 0 },
		OpenAPILoaded: func() bool {
			for _, src := range specSources {
				if len(oaIndex.AllOperationIDs(src.ServiceID)) > 0 {
					return true
				}
			}
			return len(specSources) == 0
		},
	}
	if hc, ok := wizardStore.(observability.HealthChecker); ok {
		ready.WizardStore = hc
	}
	if hc, ok := idemStore.(observability.HealthChecker); ok {
		ready.IdempotencyStore = hc
	}

	reload := func() error {
		newDefs, err := loader.LoadAll(cfg.Definitions.Directories)
		if err != nil {
			return fmt.Errorf("reload definitions: %w", err)
		}
		if verrs := validator.Validate(newDefs, oaIndex); len(verrs) > 0 {
			return fmt.Errorf("reload definitions: %d validation errors, first: %s",
				len(verrs), verrs[0].Error())
		}
		registry.Replace(newDefs)
		metrics.SetDefinitionsLoaded(float64(len(newDefs)))
		logger.Info("definitions reloaded",
			zap.Int("domains", len(newDefs)),
			zap.String("checksum", registry.Checksum()),
		)
		return nil
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:             cfg,
		Logger:             logger,
		Authenticate:       transport.JWTAuthenticator(cfg.Identity, jwks),
		CapabilityResolver: capResolver,
		Screens:            screens,
		Menu:               menu,
		Lookups:            lookups,
		Sessions:           sessions,
		Wizards:            wizards,
		Registry:           registry,
		Reload:             reload,
		Metrics:            metrics,
		Ready:              ready,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background loops: idle screen session sweep and wizard expiry.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	sessions.StartSweeper(bgCtx, cfg.Session.TimeoutCheckInterval)
	if cfg.Wizard.Enabled {
		wizards.StartExpiryLoop(bgCtx, cfg.Wizard.TimeoutCheckInterval)
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("domains", len(defs)),
		zap.String("definitions_checksum", registry.Checksum()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()

	if wizardCloser != nil {
		wizardCloser()
	}
	if idemCloser != nil {
		idemCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildSpecSources converts config spec sources to openapi.SpecSource,
// joining relative spec files onto the configured directory and carrying
// the service base URL for server resolution.
func buildSpecSources(specsCfg config.SpecsConfig, services map[string]config.ServiceConfig) []openapi.SpecSource {
	sources := make([]openapi.SpecSource, len(specsCfg.Sources))
	for i, s := range specsCfg.Sources {
		specPath := s.SpecFile
		if specsCfg.Directory != "" && !filepath.IsAbs(specPath) {
			specPath = filepath.Join(specsCfg.Directory, specPath)
		}
		sources[i] = openapi.SpecSource{
			ServiceID: s.ServiceID,
			BaseURL:   services[s.ServiceID].BaseURL,
			SpecPath:  specPath,
		}
	}
	return sources
}

func buildCapabilityResolver(cfg config.CapabilityConfig) (*capability.Resolver, error) {
	evaluator, err := capability.NewStaticPolicyEvaluator(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("static policy: %w", err)
	}
	return capability.NewResolver(evaluator, cfg.Cache.TTL), nil
}

// buildWizardStore creates the wizard store based on config. The in-memory
// store is used when wizards are disabled or no DSN is configured.
func buildWizardStore(ctx context.Context, cfg config.WizardConfig, logger *zap.Logger) (wizard.Store, func(), error) {
	if !cfg.Enabled {
		return wizard.NewMemoryStore(), nil, nil
	}

	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory wizard store")
		return wizard.NewMemoryStore(), nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.Store.DSNEnv)
		if dsn == "" && cfg.Store.DSNEnv != "" {
			return nil, nil, fmt.Errorf("wizard store: %s environment variable not set", cfg.Store.DSNEnv)
		}
		if dsn == "" {
			logger.Warn("wizard store DSN not configured, using in-memory store")
			return wizard.NewMemoryStore(), nil, nil
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("wizard store: parse DSN: %w", err)
		}
		if cfg.Store.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.Store.MaxConns)
		}
		if cfg.Store.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.Store.ConnMaxLifetime
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("wizard store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("wizard store: ping: %w", err)
		}

		return wizard.NewPgStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported wizard store driver: %q", cfg.Store.Driver)
	}
}

// buildIdempotencyStore creates the idempotency store based on config.
// Returns a nil store when idempotency is disabled; replay protection is
// then skipped entirely.
func buildIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, logger *zap.Logger) (controller.IdempotencyStore, func(), error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	switch cfg.Store.Driver {
	case "memory", "":
		logger.Info("using in-memory idempotency store")
		return controller.NewMemoryIdempotencyStore(), nil, nil
	case "redis":
		addr := os.Getenv(cfg.Store.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("idempotency store: %s environment variable not set", cfg.Store.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Store.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("idempotency store: ping: %w", err)
		}
		return controller.NewRedisIdempotencyStore(client), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported idempotency store driver: %q", cfg.Store.Driver)
	}
}
