package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"specboard/internal/auth"
	"specboard/internal/config"
	"specboard/internal/domain/models"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/fieldschema"
	"specboard/internal/repository/postgres"
	postgresSpecs "specboard/internal/repository/postgres/specsystem"
	serviceAuth "specboard/internal/service/auth"
	serviceSpecs "specboard/internal/service/specsystem"

	"github.com/joho/godotenv"
)

func main() {
	ownerEmail := flag.String("owner", "owner@specboard.local", "Email of the seeded spec owner")
	reviewerEmail := flag.String("reviewer", "reviewer@specboard.local", "Email of the seeded collaborator")
	password := flag.String("password", "specboard-dev", "Password for created Supabase users")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: seeding writes sample data
	if cfg.Environment == "prod" {
		log.Fatalf("BLOCKED: refusing to seed the prod environment")
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	// Resolve seed users through the Supabase Admin API when a service key is set
	owner, reviewer := &models.Identity{ID: "seed-owner", Email: *ownerEmail}, &models.Identity{ID: "seed-reviewer", Email: *reviewerEmail}
	if cfg.SupabaseKey != "" {
		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if owner, err = ensureUser(ctx, admin, *ownerEmail, *password, "Spec Owner"); err != nil {
			log.Fatalf("Failed to ensure owner: %v", err)
		}
		if reviewer, err = ensureUser(ctx, admin, *reviewerEmail, *password, "Reviewer"); err != nil {
			log.Fatalf("Failed to ensure reviewer: %v", err)
		}
	} else {
		logger.Warn("SUPABASE_KEY not set, seeding with placeholder user ids")
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Ensure schema exists
	migrator, err := postgres.NewMigrator(pool, cfg.TablePrefix, logger)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	_ = migrator.Close()

	registry, err := fieldschema.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load field schema: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	specRepo := postgresSpecs.NewFeatureSpecRepository(repoConfig)
	changeRepo := postgresSpecs.NewFieldChangeRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	asOwner := auth.StaticIdentityProvider{Identity: owner}
	asReviewer := auth.StaticIdentityProvider{Identity: reviewer}

	specService := serviceSpecs.NewFeatureSpecService(specRepo, txManager, registry, asOwner, serviceAuth.OwnerOnlyPolicy{}, logger)
	reviewerSuggestions := serviceSpecs.NewSuggestionService(
		specRepo,
		serviceSpecs.NewChangeStore(changeRepo, asReviewer, logger),
		serviceSpecs.NewDocumentReconciler(specRepo, changeRepo, txManager, logger),
		registry,
		asReviewer,
		serviceAuth.OwnerOnlyPolicy{},
		nil,
		nil,
		logger,
	)

	spec, err := specService.CreateFeatureSpec(ctx, &specSvc.CreateFeatureSpecRequest{
		FeatureName: "Inline comment threads",
		Content:     sampleContent(),
	})
	if err != nil {
		log.Fatalf("Failed to create sample spec: %v", err)
	}
	logger.Info("seeded feature spec", "id", spec.ID, "owner", owner.Email)

	for _, s := range sampleSuggestions() {
		s.FeatureSpecID = spec.ID
		change, err := reviewerSuggestions.ProposeFieldEdit(ctx, &s)
		if err != nil {
			log.Fatalf("Failed to propose %s: %v", s.FieldPath, err)
		}
		if change == nil {
			continue
		}
		logger.Info("seeded suggestion",
			"change_id", change.ID,
			"field_path", change.FieldPath,
			"status", change.Status,
			"author", reviewer.Email,
		)
	}

	fmt.Printf("Seeded spec %s with %d suggestions (prefix: %s)\n", spec.ID, len(sampleSuggestions()), cfg.TablePrefix)
}

func ensureUser(ctx context.Context, admin *auth.AdminClient, email, password, name string) (*models.Identity, error) {
	user, err := admin.EnsureUser(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	return &models.Identity{ID: user.ID, Email: user.Email}, nil
}

func sampleContent() models.JSONMap {
	return models.JSONMap{
		"overview": map[string]interface{}{
			"problemStatement": "Review feedback lives in chat threads and gets lost.",
			"background":       "Reviewers currently paste field names into chat messages.",
		},
		"userGoals": []interface{}{
			map[string]interface{}{"description": "Comment on a specific field", "priority": "high"},
		},
		"nonGoals": []interface{}{"Real-time co-editing"},
	}
}

func sampleSuggestions() []specSvc.ProposeFieldEditRequest {
	return []specSvc.ProposeFieldEditRequest{
		{
			FieldPath: "featureName",
			NewValue:  "Field-level comment threads",
		},
		{
			FieldPath:         "userGoals.0.description",
			NewValue:          "Comment on a specific field and resolve the thread",
			ChangeDescription: "Goal should cover resolution too",
		},
		{
			FieldPath: "nonGoals",
			NewValue:  []interface{}{"Real-time co-editing", "Email notifications"},
		},
	}
}
