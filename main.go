package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imuii-id/imuii-portal/pkg/assistant"
	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/config"
	"github.com/imuii-id/imuii-portal/pkg/fanout"
	"github.com/imuii-id/imuii-portal/pkg/gateway"
	"github.com/imuii-id/imuii-portal/pkg/handlers"
	"github.com/imuii-id/imuii-portal/pkg/logging"
	"github.com/imuii-id/imuii-portal/pkg/middleware"
	"github.com/imuii-id/imuii-portal/pkg/retry"
	"github.com/imuii-id/imuii-portal/pkg/services"
	"github.com/imuii-id/imuii-portal/pkg/snapshot"
	"github.com/imuii-id/imuii-portal/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	uiDir           = "./ui/dist"
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ResolveForDocker()

	logger, err := logging.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("portal_base_url", cfg.PortalBaseURL),
		zap.String("api_base_url", logging.SanitizeURL(cfg.API.BaseURL)),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("chatbot_mode", cfg.Chatbot.Mode),
		zap.Bool("redis", cfg.Redis.Enabled()),
		zap.Bool("storage", cfg.Storage.IsConfigured()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Shared showcase snapshots: Redis when configured and reachable,
	// otherwise this process only.
	var (
		snapshots snapshot.Store = snapshot.NewMemoryStore()
		redisPing handlers.Pinger
	)
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		store := snapshot.NewRedisStore(client, cfg.Redis.TTL)
		if err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
			return store.Ping(ctx)
		}); err != nil {
			logger.Warn("Redis unreachable, showcase snapshots stay in memory",
				zap.String("addr", cfg.Redis.Addr),
				zap.String("error", logging.SanitizeError(err)))
		} else {
			snapshots = store
			redisPing = store
		}
	}

	validator, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*auth.JWKSClient, error) {
		return auth.NewJWKSClient(ctx, &auth.JWKSConfig{
			EnableVerification: cfg.Auth.EnableVerification,
			JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	defer validator.Close()

	client := gateway.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)

	aggregator := services.NewAggregator(client, snapshots, services.ShowcaseConfig{
		PageLimit: cfg.Showcase.PageLimit,
		MaxAge:    cfg.Showcase.MaxAge,
	}, logger)
	items := services.NewItemService(client, client, aggregator, logger)
	events := services.NewEventService(client, logger)
	pool := fanout.NewPool(fanout.Config{MaxConcurrent: cfg.Membership.MaxConcurrent}, logger)
	membership := services.NewMembershipService(client, pool, cfg.Membership.CandidateLimit, logger)

	var thumbnails *services.ThumbnailService
	if cfg.Storage.IsConfigured() {
		store, err := storage.NewS3Store(ctx, storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize thumbnail storage: %w", err)
		}
		thumbnails = services.NewThumbnailService(store, items, logger)
	} else {
		logger.Info("Thumbnail storage not configured, uploads disabled")
	}

	bot, err := newAssistant(cfg, aggregator, logger)
	if err != nil {
		return err
	}
	chat := services.NewChatService(bot, services.ChatConfig{
		Rate:  rate.Limit(cfg.Chatbot.RatePerSecond),
		Burst: cfg.Chatbot.Burst,
	}, logger)

	cookieSettings := auth.DeriveCookieSettings(cfg.PortalBaseURL, cfg.Auth.CookieDomain)
	login := auth.LoginRedirect{WebBaseURL: cfg.WebBaseURL, PortalBaseURL: cfg.PortalBaseURL}
	tokenCookie := auth.TokenCookie{Name: cfg.Auth.CookieName, Settings: cookieSettings}
	sessions := auth.NewSessionStore(cfg.SessionSecret, cookieSettings)
	authService := auth.NewAuthService(validator, cfg.Auth.CookieName, logger)
	authMiddleware := auth.NewMiddleware(authService, login, tokenCookie, logger)
	respond := handlers.NewResponder(login, tokenCookie, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, aggregator, redisPing, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(login, tokenCookie, sessions, client, respond, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewShowcaseHandler(aggregator, respond, logger).RegisterRoutes(mux)
	handlers.NewEventsHandler(events, respond, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewItemsHandler(items, thumbnails, respond, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewMembershipHandler(membership, items, respond, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewUsersHandler(client, respond, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewChatHandler(chat, sessions, respond, logger).RegisterRoutes(mux)

	// Serve the built browser views when present
	if info, err := os.Stat(uiDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(uiDir)))
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Chain(mux, middleware.RequestLogger(logger), middleware.Recoverer(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Warm the showcase so the first visitor does not wait on both listings.
	go aggregator.Current(ctx)

	serveErr := make(chan error, 1)
	logger.Info("Starting imuii-portal",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version))
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// newAssistant selects the chatbot backend for cfg.Chatbot.Mode.
func newAssistant(cfg *config.Config, catalog assistant.Catalog, logger *zap.Logger) (assistant.Assistant, error) {
	switch cfg.Chatbot.Mode {
	case config.ChatbotModeLLM:
		llm, err := assistant.NewLLM(assistant.LLMConfig{
			Endpoint:    cfg.Chatbot.LLMEndpoint,
			Model:       cfg.Chatbot.LLMModel,
			APIKey:      cfg.Chatbot.LLMAPIKey,
			Temperature: float64(cfg.Chatbot.LLMTemperature),
			Retry:       retry.DefaultConfig(),
		}, catalog, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM assistant: %w", err)
		}
		return llm, nil
	default:
		return assistant.NewWebhook(cfg.Chatbot.WebhookURL, cfg.Chatbot.Timeout, logger), nil
	}
}
