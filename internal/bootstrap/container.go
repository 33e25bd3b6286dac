package bootstrap

import (
	"context"
	"log"

	"ai-tunemate-be/internal/config"
	"ai-tunemate-be/internal/controller"
	"ai-tunemate-be/internal/pkg/logger"
	"ai-tunemate-be/internal/repository"
	"ai-tunemate-be/internal/repository/implementation"
	sessionmem "ai-tunemate-be/internal/repository/memory"
	"ai-tunemate-be/internal/service"
	"ai-tunemate-be/internal/websocket"
	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm/factory"
	"ai-tunemate-be/pkg/memory"
	"ai-tunemate-be/pkg/relay"

	pktNats "ai-tunemate-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RecommendationController controller.IRecommendationController
	AdminController          controller.IAdminController
	RelayController          controller.IRelayController

	// Background Services (Exposed for main.go to run)
	RelayConsumerService service.IRelayConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub

	// Exposed for the health endpoint.
	KnowledgeStore *knowledge.Store
}

// NewContainer wires the whole dependency graph. db may be nil when no
// database is configured; analytics then degrades to a no-op while the
// recommendation pipeline keeps working.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM Provider
	// A misconfigured provider must not prevent startup: the admin surface and
	// the health endpoint stay reachable while /recommend answers 503.
	llmProvider, err := factory.NewLLMProvider(
		cfg.Llm.Provider,
		cfg.Llm.Model,
		cfg.Llm.BaseURL,
		cfg.Llm.APIKey,
	)
	if err != nil {
		log.Printf("[WARN] Failed to initialize LLM Provider: %v. Recommendation endpoints will answer 503", err)
		llmProvider = nil
	} else {
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Llm.Provider, cfg.Llm.Model)
	}

	// 4. Knowledge Base
	store, err := knowledge.NewStore(cfg.Knowledge.FilePath)
	if err != nil {
		log.Printf("[WARN] Failed to load knowledge base from %s: %v", cfg.Knowledge.FilePath, err)
		store = nil
	} else {
		log.Printf("[INFO] Knowledge base loaded: %d songs", store.Count())
	}

	// 5. Conversation Memory
	sessionRepo := sessionmem.NewSessionRepository()
	memManager := memory.NewManager(sessionRepo, cfg.Knowledge.SessionIdleTimeout)

	// 6. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Activity feed stays single-instance", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/activity.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 7. Analytics Storage
	var analyticsRepo repository.AnalyticsRepository
	if db != nil {
		analyticsRepo = implementation.NewAnalyticsRepository(db)
	} else {
		log.Printf("[WARN] No database configured, analytics recording disabled")
	}

	// 8. Services
	recommendationService := service.NewRecommendationService(
		llmProvider,
		store,
		memManager,
		natsPub,
		cfg.Knowledge.SearchLimit,
		cfg.Knowledge.ResetCommand,
	)
	adminService := service.NewAdminService(store, analyticsRepo)

	relayClient := relay.NewClient(cfg.Relay.BaseURL, cfg.Relay.Timeout)
	relayService := service.NewRelayService(pubSub, cfg.Relay.Topic)
	relayConsumerService := service.NewRelayConsumerService(
		pubSub,
		cfg.Relay.Topic,
		recommendationService,
		relayClient,
		analyticsRepo,
	)

	// Activity Feed (Worker)
	if natsSub != nil {
		activityService := service.NewActivityService(natsSub, wsHub, sysLogger)
		if err := activityService.Start(); err != nil {
			log.Printf("[WARN] Failed to start activity feed consumer: %v", err)
		}
	}

	// 9. Controllers
	return &Container{
		RecommendationController: controller.NewRecommendationController(recommendationService),
		AdminController:          controller.NewAdminController(adminService, wsHub),
		RelayController:          controller.NewRelayController(relayService, cfg.Relay.AckText),

		RelayConsumerService: relayConsumerService,

		WebSocketHub:   wsHub,
		KnowledgeStore: store,
	}
}
