package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"tutor-chat/auth"
	"tutor-chat/channel"
	"tutor-chat/directory"
	"tutor-chat/httpapi"
	"tutor-chat/observability"
	"tutor-chat/repositories"
	"tutor-chat/runtime"
	"tutor-chat/runtime/workers"
	"tutor-chat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal or a server failure.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if config.RequestGreeting == "" {
		config.RequestGreeting = services.DefaultRequestGreeting
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// 4. Setup Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, runtime.NewRegistry(), config.BufferSize, config.SinkTimeout).
		MonitorQueue(metrics, config.MetricInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 5. Domain services
	conversationRepository := repositories.NewConversationRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	cachedDirectory, err := directory.NewCachedDirectory(
		directory.NewBreakerDirectory(log,
			directory.NewClient(config.DirectoryBaseURL, config.DirectoryTimeout),
			directory.BreakerConfig{MaxFailures: uint32(config.DirectoryMaxFailures), OpenTimeout: config.DirectoryOpenTimeout}),
		config.DirectoryCacheSize, config.DirectoryCacheTTL)
	if err != nil {
		return fmt.Errorf("directory cache: %w", err)
	}

	resolver := services.NewConversationResolver(log, conversationRepository, metrics)
	messageService := services.NewMessageService(log, conversationRepository, messageRepository,
		orchestrator, metrics, config.MaxContentLength).
		WithPublishTimeout(config.PublishTimeout)
	readTracker := services.NewReadTracker(log, messageRepository)
	aggregator := services.NewConversationAggregator(log, conversationRepository, messageRepository,
		readTracker, cachedDirectory, metrics, services.AggregatorConfig{
			LookupTimeout: config.LookupTimeout,
			Concurrency:   config.AggregationConcurrency,
		})
	contacts := services.NewContactService(log, resolver, messageService, cachedDirectory, services.Greetings{
		Tutor:   config.TutorGreeting,
		Request: config.RequestGreeting,
	})
	messageChannel := channel.NewMessageChannel(log, orchestrator.Registry(), messageRepository, channel.Config{
		BufferSize:  config.SubscriptionBufferSize,
		DedupWindow: config.DedupWindow,
	}, metrics)
	chat := services.NewChatService(log, messageService, readTracker, messageChannel)

	// 6. HTTP Server Setup
	gin.SetMode(gin.ReleaseMode)
	handlers := httpapi.NewHandlers(log, contacts, aggregator, messageService, readTracker, chat)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           httpapi.NewRouter(log, auth.NewVerifier(config.AuthSecret, config.AuthIssuer), handlers, registry),
		ReadHeaderTimeout: 5 * time.Second,
		// Open chat streams end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server did not stop cleanly", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
