package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"inkflow/internal/auth"
	"inkflow/internal/cache"
	"inkflow/internal/config"
	"inkflow/internal/handler"
	"inkflow/internal/handler/sse"
	"inkflow/internal/middleware"
	"inkflow/internal/repository/postgres"
	"inkflow/internal/service"
	"inkflow/internal/service/generation"
	"inkflow/internal/service/llm"
	"inkflow/internal/service/llm/providers/lorem"
	"inkflow/internal/service/llm/providers/moonshot"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx := context.Background()

	// Postgres connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Redis client for generation snapshots
	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("redis connected", "addr", cfg.RedisAddr)

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	novelRepo := postgres.NewNovelRepository(repoConfig)
	chapterRepo := postgres.NewChapterRepository(repoConfig)
	optionRepo := postgres.NewOptionRepository(repoConfig)
	choiceRepo := postgres.NewUserChoiceRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	chapterCache := cache.NewChapterCache(redisClient, logger)

	// Token codecs
	issuer := auth.NewAccessTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, logger)
	resumeCodec := auth.NewResumeTokenCodec(cfg.JWTSecret, cfg.ResumeTokenTTL)

	// Prompt templates back both the LLM provider and the themes endpoint
	prompts, err := llm.NewPromptLibrary()
	if err != nil {
		log.Fatalf("Failed to load prompt library: %v", err)
	}

	// LLM provider
	provider, err := buildProvider(cfg, prompts, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}
	logger.Info("llm provider ready", "provider", provider.Name())

	// Services
	authService := service.NewAuthService(userRepo, issuer, logger)
	novelService := service.NewNovelService(novelRepo, logger)
	chapterService := service.NewChapterService(novelRepo, chapterRepo, optionRepo, choiceRepo, logger)
	generationService := generation.NewService(generation.ServiceConfig{
		Novels:   novelRepo,
		Chapters: chapterRepo,
		Options:  optionRepo,
		Tx:       txManager,
		Cache:    chapterCache,
		Provider: provider,
		Codec:    resumeCodec,
		Logger:   logger,
	})

	logger.Info("services initialized")

	// Handlers and routes
	mux := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, logger),
		Novel:   handler.NewNovelHandler(novelService, chapterService, generationService, logger),
		Chapter: handler.NewChapterHandler(chapterService, logger),
		Stream:  handler.NewStreamHandler(generationService, sse.DefaultConfig(), logger),
		Theme:   handler.NewThemeHandler(prompts),
	})

	// Middleware chain: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(issuer)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Run the server and a signal watcher; either one ending stops the other.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("server stopped")
}

// buildProvider selects the chapter provider from config.
func buildProvider(cfg *config.Config, prompts *llm.PromptLibrary, logger *slog.Logger) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "moonshot":
		if cfg.MoonshotAPIKey == "" {
			return nil, errors.New("MOONSHOT_API_KEY is required for the moonshot provider")
		}
		return moonshot.NewProvider(cfg.MoonshotAPIKey, cfg.MoonshotBaseURL, cfg.MoonshotModel, prompts, logger), nil

	case "lorem":
		return lorem.NewProvider(cfg.LoremDelay, 300), nil

	default:
		return nil, errors.New("unknown LLM_PROVIDER: " + cfg.LLMProvider)
	}
}
