package bootstrap

import (
	"context"
	"log"
	"time"

	"procedure-qa-be/internal/config"
	"procedure-qa-be/internal/constant"
	"procedure-qa-be/internal/controller"
	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/internal/repository/memory"
	"procedure-qa-be/internal/repository/redisstore"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/internal/service"
	"procedure-qa-be/pkg/embedding"
	"procedure-qa-be/pkg/llm/factory"
	pktNats "procedure-qa-be/pkg/nats"
	"procedure-qa-be/pkg/rerank"
	"procedure-qa-be/pkg/rerank/jina"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/resolve"
	"procedure-qa-be/pkg/retrieval"
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/synthesis"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResolutionController controller.IResolutionController
	DocumentController   controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	traceLogger := logger.NewIsolatedLogger("logs/resolution_trace.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider, err := embedding.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.GeminiAPIKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaEmbedModel,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	callTimeout := time.Duration(cfg.Ai.CallTimeoutSec) * time.Second

	var rerankProvider rerank.RerankProvider
	if cfg.Ai.JinaAPIKey != "" {
		rerankProvider = jina.NewJinaProvider(cfg.Ai.JinaAPIKey, callTimeout)
		log.Printf("[INFO] Using Rerank Provider: JINA AI")
	} else {
		log.Printf("[INFO] Reranking disabled, retrieval keeps similarity order")
	}

	exec := resilience.NewExecutor(resilience.Config{}, sysLogger)

	// 4. Session Store
	var sessionStore contract.SessionStore
	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second
	if cfg.Session.Store == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		sessionStore = redisstore.NewSessionStore(rdb, sessionTTL)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		sessionStore = memory.NewSessionStore(sessionTTL)
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	// 5. NATS audit bus (optional; nil disables auditing)
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
	}

	// 6. Resolution Engine
	routerCacheService := service.NewRouterCacheService(uowFactory, cfg.App.RouterCachePath, sysLogger)
	routerCache, err := routerCacheService.Build(context.Background())
	if err != nil {
		log.Printf("[WARN] Failed to build router cache, starting empty: %v", err)
		routerCache = router.NewEmptyCache()
	}

	queryRouter := router.NewRouter(routerCache, embeddingProvider, exec, sysLogger, router.Config{
		TopK:          cfg.Resolution.RouterTopK,
		HighThreshold: cfg.Resolution.RouterHighThreshold,
		LowThreshold:  cfg.Resolution.RouterLowThreshold,
		TieEpsilon:    cfg.Resolution.RouterTieEpsilon,
	})

	ambiguityResolver := resolve.NewAmbiguityResolver(queryRouter, cfg.Resolution.TopicShiftFloor)
	stateMachine := resolve.NewStateMachine(cfg.Resolution.ClarificationTurnCap, 0, 0)

	pipeline := retrieval.NewPipeline(
		service.NewChunkSearcher(uowFactory),
		service.NewDocumentLoader(uowFactory),
		rerankProvider,
		exec,
		sysLogger,
		retrieval.Config{
			BroadK:            cfg.Resolution.BroadSearchK,
			BroadFloor:        cfg.Resolution.BroadSearchFloor,
			NucleusFloor:      cfg.Resolution.NucleusFloor,
			ExpansionWindow:   cfg.Resolution.ExpansionWindow,
			FullDocumentMode:  cfg.Resolution.FullDocumentMode,
			FullDocCharBudget: cfg.Resolution.FullDocCharBudget,
		},
	)

	synthesizer := synthesis.NewSynthesizer(llmProvider, exec, sysLogger, synthesis.Config{
		MaxContextChars: cfg.Resolution.MaxContextChars,
		MaxAnswerTokens: cfg.Resolution.MaxAnswerTokens,
	})

	// 7. Services
	publisherService := service.NewPublisherService(constant.TopicDocumentEmbed, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.TopicDocumentEmbed,
		uowFactory,
		embeddingProvider,
		routerCacheService,
		queryRouter,
		sysLogger,
	)

	resolutionService := service.NewResolutionService(
		queryRouter,
		ambiguityResolver,
		stateMachine,
		pipeline,
		synthesizer,
		sessionStore,
		eventPublisher,
		sysLogger,
		traceLogger,
		callTimeout,
	)

	documentService := service.NewDocumentService(uowFactory, publisherService, eventPublisher, sysLogger)

	// 8. Controllers
	return &Container{
		ResolutionController: controller.NewResolutionController(resolutionService),
		DocumentController:   controller.NewDocumentController(documentService, routerCacheService, queryRouter),

		ConsumerService: consumerService,
	}
}
