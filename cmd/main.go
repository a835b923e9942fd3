package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/novamark/agencydesk-backend/internal/clients/openai"
	"github.com/novamark/agencydesk-backend/internal/http/handlers"
	"github.com/novamark/agencydesk-backend/internal/http/middleware"
	"github.com/novamark/agencydesk-backend/internal/platform/config"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/platform/observability"
	"github.com/novamark/agencydesk-backend/internal/realtime/bus"
	"github.com/novamark/agencydesk-backend/internal/server"
	"github.com/novamark/agencydesk-backend/internal/services"
	"github.com/novamark/agencydesk-backend/internal/sse"
	"github.com/novamark/agencydesk-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED is set)
	if shutdownTracing := observability.InitTracing(ctx, log, observability.Config{
		ServiceName: "agencydesk-backend",
		Environment: cfg.LogMode,
	}); shutdownTracing != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	log.Info("Connecting to postgres...")
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	// Change bus: redis when configured, in-process otherwise
	var changeBus bus.Bus
	if cfg.Redis.Addr != "" {
		changeBus, err = bus.NewRedisBus(log, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			log.Fatal("Redis init failed", "error", err)
		}
	} else {
		log.Info("No redis address configured, using in-process bus")
		changeBus = bus.NewLocalBus()
	}
	defer changeBus.Close()

	// Record store
	records := store.NewGormStore(db, log, changeBus)
	if err := records.StartForwarder(ctx); err != nil {
		log.Fatal("Change forwarder init failed", "error", err)
	}

	// SSE
	log.Info("Setting up SSE hub...")
	hub := sse.NewHub(log)
	notifier := services.NewChatNotifier(hub)

	// AI responder
	responder := services.NewCannedResponder()
	if cfg.AI.Enabled {
		aiClient, err := openai.NewClient(log, cfg.AI.BaseURL, cfg.AI.Model)
		if err != nil {
			log.Warn("AI responder init failed, falling back to canned replies", "error", err)
		} else {
			responder = services.NewOpenAIResponder(aiClient)
		}
	}

	// Services
	log.Info("Setting up services...")
	conversationService := services.NewConversationService(records, log, notifier)
	messageService := services.NewMessageService(records, log, conversationService, notifier, responder)
	directoryService := services.NewDirectoryService(records, log)

	// Handlers
	log.Info("Setting up handlers...")
	chatHandler := handlers.NewChatHandler(conversationService, messageService, directoryService)
	inboxHandler := handlers.NewInboxHandler(conversationService, messageService, directoryService)
	directoryHandler := handlers.NewDirectoryHandler(directoryService)
	realtimeHandler := handlers.NewRealtimeHandler(log, hub, conversationService, messageService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, cfg.JWTSecret)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AuthMiddleware:   authMiddleware,
		ChatHandler:      chatHandler,
		InboxHandler:     inboxHandler,
		DirectoryHandler: directoryHandler,
		RealtimeHandler:  realtimeHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
	log.Info("Server stopped")
}
