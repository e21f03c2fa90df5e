package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/sourcegraph/conc"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/granada-os/personalization/external/accounts"
	"github.com/granada-os/personalization/external/contentai"
	"github.com/granada-os/personalization/external/geoip"
	"github.com/granada-os/personalization/internal/config"
	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/infrastructure/latencyprobe"
	"github.com/granada-os/personalization/internal/infrastructure/progresscookie"
	"github.com/granada-os/personalization/internal/infrastructure/repository/cache"
	"github.com/granada-os/personalization/internal/infrastructure/repository/memory"
	"github.com/granada-os/personalization/internal/infrastructure/repository/postgres"
	"github.com/granada-os/personalization/internal/interfaces/httpapi"
	"github.com/granada-os/personalization/internal/platform/id"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/platform/resilience"
	"github.com/granada-os/personalization/internal/usecase"
)

const (
	dbPingTimeout        = 5 * time.Second
	sessionSweepInterval = time.Minute
)

type storage struct {
	progress  onboarding.ProgressRepository
	snapshots location.SnapshotRepository
	close     func() error
}

// NewHTTPServer wires storage, detectors, outbound clients and services into the HTTP server.
// The returned cleanup stops the session janitor and releases the database pool, if any.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	locationSvc := usecase.NewLocationService(newDetectors(cfg, logger), store.snapshots, logger, usecase.LocationServiceConfig{
		CacheTTL:     cfg.LocationCacheTTL,
		DetectBudget: cfg.LocationDetectBudget,
	})

	generator, err := newContentGenerator(cfg, logger)
	if err != nil {
		_ = store.close()
		return nil, nil, err
	}
	contentSvc := usecase.NewContentService(generator, logger)
	stepSvc := usecase.NewStepService(locationSvc)
	sessions := memory.NewSessionRepository(cfg.SessionTTL)
	flowSvc := usecase.NewFlowService(
		sessions,
		store.progress,
		newRegistrar(cfg, logger),
		id.NewUUIDGenerator(),
		logger,
	)

	codec := progresscookie.NewCodec(progresscookie.Config{
		MaxAge: cfg.ProgressMaxAge,
		Secure: cfg.ProgressCookieSecure,
	})
	progressSvc := usecase.NewProgressService(store.progress, codec, cfg.ProgressMaxAge, logger)

	handler := httpapi.NewHandler(locationSvc, contentSvc, stepSvc, flowSvc, progressSvc, codec, logger)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	var janitor conc.WaitGroup
	janitor.Go(func() { sessions.RunJanitor(janitorCtx, sessionSweepInterval) })

	cleanup := func() error {
		stopJanitor()
		janitor.Wait()
		return store.close()
	}
	return server, cleanup, nil
}

func newStorage(cfg config.Config, logger *logging.Logger) (storage, error) {
	if cfg.StorageDriver != config.StoragePostgres {
		logger.Info("storage configured", "driver", config.StorageMemory)
		return storage{
			progress:  memory.NewProgressRepository(),
			snapshots: memory.NewSnapshotRepository(),
			close:     func() error { return nil },
		}, nil
	}

	target := resolvePostgresTarget(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", target.DSN,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(target.Name),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return storage{}, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return storage{}, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("storage configured",
		"driver", config.StoragePostgres,
		"db_host", target.Host,
		"db_name", target.Name,
		"cache_enabled", cfg.CacheEnabled,
	)

	var (
		progress  onboarding.ProgressRepository = postgres.NewProgressRepository(db)
		snapshots location.SnapshotRepository   = postgres.NewSnapshotRepository(db)
	)
	if cfg.CacheEnabled {
		progress = cache.NewProgressRepository(progress, cfg.CacheTTL)
		snapshots = cache.NewSnapshotRepository(snapshots, cfg.CacheTTL)
	}

	return storage{progress: progress, snapshots: snapshots, close: db.Close}, nil
}

// newDetectors returns the detectors in tie-break order: ip, timezone, language, latency.
func newDetectors(cfg config.Config, logger *logging.Logger) []location.Detector {
	detectors := make([]location.Detector, 0, 4)

	if cfg.GeoIPEnabled {
		detectors = append(detectors, geoip.NewClient(geoip.ClientConfig{
			Timeout:             cfg.GeoIPTimeout,
			IPGeolocationAPIKey: cfg.GeoIPIPGeolocationAPIKey,
			Logger:              logger,
			CircuitBreaker:      breakerConfig(cfg.GeoIPCircuit),
		}))
	} else {
		logger.Info("geoip detector disabled", "reason", "GEOIP_ENABLED=false")
	}

	detectors = append(detectors, usecase.NewTimezoneDetector(), usecase.NewLanguageDetector())

	var prober usecase.LatencyProber
	if cfg.LatencyProbeEnabled {
		prober = latencyprobe.New(latencyprobe.Config{
			Timeout: cfg.LatencyProbeTimeout,
			Workers: cfg.LatencyProbeWorkers,
			Logger:  logger,
		})
	}
	detectors = append(detectors, usecase.NewLatencyDetector(prober))

	return detectors
}

func newContentGenerator(cfg config.Config, logger *logging.Logger) (usecase.ContentGenerator, error) {
	if !cfg.ContentAIEnabled {
		logger.Info("content generator disabled", "reason", "CONTENT_AI_ENABLED=false")
		return nil, nil
	}

	client, err := contentai.NewClient(contentai.ClientConfig{
		BaseURL:        cfg.ContentAIBaseURL,
		Timeout:        cfg.ContentAITimeout,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.ContentAICircuit),
	})
	if err != nil {
		return nil, fmt.Errorf("build content generator: %w", err)
	}
	return client, nil
}

func newRegistrar(cfg config.Config, logger *logging.Logger) usecase.AccountRegistrar {
	if cfg.AccountsBaseURL == "" {
		logger.Warn("account registration disabled", "reason", "ACCOUNTS_BASE_URL empty")
		return nil
	}

	return accounts.NewClient(accounts.ClientConfig{
		BaseURL:        cfg.AccountsBaseURL,
		RegisterPath:   cfg.AccountsRegisterPath,
		Timeout:        cfg.AccountsTimeout,
		Logger:         logger,
		CircuitBreaker: breakerConfig(cfg.AccountsCircuit),
	})
}

func breakerConfig(c config.CircuitConfig) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          c.Enabled,
		FailureThreshold: c.FailureCount,
		OpenTimeout:      c.OpenTimeout,
		HalfOpenMaxReq:   c.HalfOpenMaxReq,
	}
}
