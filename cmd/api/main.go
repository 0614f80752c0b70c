package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mamakokoro/kokoro/internal/api/router"
	appconfig "github.com/mamakokoro/kokoro/internal/config"
	"github.com/mamakokoro/kokoro/internal/conversation"
	"github.com/mamakokoro/kokoro/internal/memory"
	"github.com/mamakokoro/kokoro/internal/observability/metrics"
	"github.com/mamakokoro/kokoro/internal/triage"
	"github.com/mamakokoro/kokoro/internal/wellness"
	"github.com/mamakokoro/kokoro/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting kokoro API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(registry)

	memoryClient := memory.NewClient(cfg.MemUBaseURL, cfg.MemUAPIKey, cfg.MemUTimeout, logger.Component("memory"))
	if cfg.MemUAPIKey == "" {
		logger.Warn("MEMU_API_KEY not set, memory features disabled")
	}

	var providers []conversation.StreamProvider
	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to initialize gemini provider", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()
		providers = append(providers, gemini)
	}
	if cfg.OpenAIAPIKey != "" {
		openaiProvider, err := conversation.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModelID)
		if err != nil {
			logger.Error("failed to initialize openai provider", "error", err)
			os.Exit(1)
		}
		providers = append(providers, openaiProvider)
	}
	if len(providers) == 0 {
		logger.Warn("no generative providers configured, serving template responses only")
	}
	chain := conversation.NewProviderChain(providers, chatMetrics, logger.Component("chain"))

	archiver := conversation.NewArchiver(memoryClient, cfg.ArchiveBuffer, cfg.ArchiveWorkers, chatMetrics, logger.Component("archiver"))
	defer archiver.Stop()

	var transcripts *conversation.TranscriptStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, conversation history disabled", "error", err)
		} else {
			transcripts = conversation.NewTranscriptStore(redisClient, cfg.TranscriptTTL)
			defer func() { _ = redisClient.Close() }()
		}
	}

	composer := conversation.NewComposer(
		triage.NewClassifier(triage.DefaultKeywords()),
		memoryClient,
		chain,
		archiver,
		chatMetrics,
		logger.Component("composer"),
	)

	conversationHandler := conversation.NewHandler(composer, transcripts, memoryClient, chatMetrics, logger.Component("chat"))
	wellnessHandler := wellness.NewHandler(memoryClient, logger.Component("wellness"))

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversationHandler,
		WellnessHandler:     wellnessHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthSecret:          cfg.AuthJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRateLimit:       cfg.ChatRateLimit,
		ChatRateBurst:       cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Streaming responses stay open well past a normal request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
