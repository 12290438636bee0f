package main

import (
	"context"
	"log"
	"os"
	"strings"

	"procedure-qa-be/internal/config"
	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/internal/service"
	"procedure-qa-be/pkg/database"
	"procedure-qa-be/pkg/embedding"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/store"

	"github.com/fatih/color"
)

// routecheck routes a query from the command line against the live
// example index and prints every candidate with its confidence band.
// Usage: go run ./cmd/routecheck "how do I register a birth"
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: routecheck <query>")
	}
	query := strings.Join(os.Args[1:], " ")

	cfg := config.Load()
	sysLogger := logger.NewIsolatedLogger("logs/routecheck.log")

	embeddingProvider, err := embedding.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.GeminiAPIKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaEmbedModel,
	)
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	cacheService := service.NewRouterCacheService(uowFactory, cfg.App.RouterCachePath, sysLogger)
	cache, err := cacheService.Build(context.Background())
	if err != nil {
		log.Fatalf("Failed to build router cache: %v", err)
	}

	exec := resilience.NewExecutor(resilience.Config{}, sysLogger)
	queryRouter := router.NewRouter(cache, embeddingProvider, exec, sysLogger, router.Config{
		TopK:          cfg.Resolution.RouterTopK,
		HighThreshold: cfg.Resolution.RouterHighThreshold,
		LowThreshold:  cfg.Resolution.RouterLowThreshold,
		TieEpsilon:    cfg.Resolution.RouterTieEpsilon,
	})

	color.Cyan("Routing: %q against %d examples\n", query, cache.Len())

	result, err := queryRouter.Route(context.Background(), query)
	if err != nil {
		color.Red("Routing failed: %v", err)
		os.Exit(1)
	}

	switch result.Confidence {
	case store.ConfidenceHigh:
		color.Green("Confidence: HIGH  ambiguous=%v", result.IsAmbiguous)
	case store.ConfidenceMedium:
		color.Yellow("Confidence: MEDIUM  ambiguous=%v", result.IsAmbiguous)
	default:
		color.Red("Confidence: LOW  ambiguous=%v", result.IsAmbiguous)
	}

	for i, c := range result.Candidates {
		color.White("%2d. %.4f  [%s] %s", i+1, c.Similarity, c.CollectionID, c.ExampleText)
	}
	if len(result.Candidates) == 0 {
		color.Yellow("No candidates; the routing index is empty.")
	}
}
