package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"specboard/internal/auth"
	"specboard/internal/config"
	"specboard/internal/fieldschema"
	"specboard/internal/handler"
	"specboard/internal/metrics"
	"specboard/internal/middleware"
	"specboard/internal/realtime"
	"specboard/internal/repository/postgres"
	postgresSpecs "specboard/internal/repository/postgres/specsystem"
	serviceAuth "specboard/internal/service/auth"
	serviceSpecs "specboard/internal/service/specsystem"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup structured logging
	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"decision_policy", cfg.DecisionPolicy,
		"realtime_driver", cfg.RealtimeDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, cfg.SupabaseIssuer, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
	)

	if cfg.AutoMigrate {
		migrator, err := postgres.NewMigrator(pool, cfg.TablePrefix, logger)
		if err != nil {
			log.Fatalf("Failed to create migrator: %v", err)
		}
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		_ = migrator.Close()
	}

	// Field schema (embedded YAML)
	registry, err := fieldschema.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load field schema: %v", err)
	}

	// Realtime change events
	notifier, err := realtime.NewNotifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create realtime notifier: %v", err)
	}
	defer notifier.Close()

	recorder := metrics.NewRecorder()

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	specRepo := postgresSpecs.NewFeatureSpecRepository(repoConfig)
	changeRepo := postgresSpecs.NewFieldChangeRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Create services
	identity := auth.NewContextIdentityProvider()
	decisionPolicy, err := serviceAuth.NewDecisionPolicy(cfg.DecisionPolicy)
	if err != nil {
		log.Fatalf("Failed to create decision policy: %v", err)
	}
	changeStore := serviceSpecs.NewChangeStore(changeRepo, identity, logger)
	reconciler := serviceSpecs.NewDocumentReconciler(specRepo, changeRepo, txManager, logger)
	suggestionService := serviceSpecs.NewSuggestionService(
		specRepo,
		changeStore,
		reconciler,
		registry,
		identity,
		decisionPolicy,
		notifier,
		recorder,
		logger,
	)
	specService := serviceSpecs.NewFeatureSpecService(specRepo, txManager, registry, identity, serviceAuth.OwnerOnlyPolicy{}, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Health:       handler.NewHealthHandler(pool, logger),
		FeatureSpecs: handler.NewFeatureSpecHandler(specService, logger),
		FieldChanges: handler.NewFieldChangeHandler(suggestionService, logger),
		Metrics:      recorder.Handler(),
	})

	// Build middleware chain
	var h http.Handler = middleware.CaptureRoute(mux)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogging → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier, handler.PublicPaths, logger)(h)
	h = middleware.RequestLogging(logger, recorder)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
