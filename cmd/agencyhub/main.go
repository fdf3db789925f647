package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/brightlane/agencyhub/pkg/access"
	"github.com/brightlane/agencyhub/pkg/api"
	"github.com/brightlane/agencyhub/pkg/audit"
	"github.com/brightlane/agencyhub/pkg/config"
	"github.com/brightlane/agencyhub/pkg/httputil"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/middleware"
	"github.com/brightlane/agencyhub/pkg/notify"
	"github.com/brightlane/agencyhub/pkg/observability"
	"github.com/brightlane/agencyhub/pkg/service"
	"github.com/brightlane/agencyhub/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agencyhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := observability.WithLogger(context.Background(), logger)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := storage.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	auditDB := audit.NewDBLogger(db)
	if err := auditDB.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate audit store: %w", err)
	}
	auditor := audit.NewMultiLogger(auditDB, &audit.SlogLogger{Logger: logger})

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	queue := notify.NewRedisQueue(redisClient, metrics)
	dispatcher := notify.NewDispatcher(queue, &notify.LogSender{Logger: logger}, cfg.Notify.Workers, logger, metrics)
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification dispatcher: %w", err)
	}

	store := storage.NewSQLStore(db)
	members := membership.NewStore(store)
	evaluator := access.NewEvaluator(store, members)
	guard := access.NewGuard(store, queue, logger)
	svc := service.New(store, members, evaluator, guard,
		service.WithAuditor(auditor),
		service.WithMetrics(metrics),
	)

	handler, err := buildHandler(ctx, cfg, svc, store, logger, metrics)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(db, redisClient, metrics),
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return dispatcher.Stop(cfg.Server.ShutdownTimeout)
	})
	shutdown.RegisterShutdownFunc(providers.Shutdown)

	if metrics != nil {
		stopStats := make(chan struct{})
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					metrics.UpdateDBStats(db.Stats())
				case <-stopStats:
					return
				}
			}
		}()
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			close(stopStats)
			return nil
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health and metrics on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

// buildHandler assembles the middleware chain around the API router.
func buildHandler(ctx context.Context, cfg *config.Config, svc *service.Service, store *storage.SQLStore, logger *observability.Logger, metrics *observability.Metrics) (http.Handler, error) {
	apiServer := api.NewServer(svc)
	if metrics != nil {
		// Registered on the router so the matched route template is
		// available as the path label.
		apiServer.Router().Use(metrics.HTTPMiddleware(routeTemplate))
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		injectLogger(logger),
		httputil.Logging,
		httputil.Recovery,
	}
	if cfg.Auth.Enabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID, cfg.Auth.RolesClaim)
		if err != nil {
			return nil, fmt.Errorf("failed to configure OIDC: %w", err)
		}
		auth := middleware.NewAuth(verifier, identity.NewResolver(store), logger, metrics)
		chain = append(chain, auth.Handler)
	} else {
		logger.Warn("Auth is disabled; all requests resolve as unbound")
	}

	handler := httputil.Chain(chain...)(apiServer.Router())
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "agencyhub")
	}
	return handler, nil
}

func injectLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
		})
	}
}

// routeTemplate labels request metrics with the mux route template so
// per-record paths do not explode label cardinality.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

func healthMux(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)
	m := http.NewServeMux()
	m.HandleFunc("/healthz", checker.Liveness)
	m.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		m.Handle("/metrics", metrics.Handler())
	}
	return m
}
