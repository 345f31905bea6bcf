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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/cache"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/config"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/handler"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/llm"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/middleware"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/repository"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/service"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/youtube"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, &db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConnections),
		MinConns:        int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxLifetime,
		MaxConnIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	// Metadata cache is optional. Without Redis every lookup is a miss.
	var metaCache *cache.Cache
	if cfg.Redis.Addr != "" {
		metaCache = cache.New(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		logger.Log.Info("Metadata cache enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Log.Info("Metadata cache disabled, no Redis address configured")
	}

	ytClient, err := newVideoProvider(ctx, cfg, metaCache)
	if err != nil {
		logger.Log.Fatal("Failed to initialize YouTube client", zap.Error(err))
	}

	analyzer := llmClient(cfg)

	// Event publishing is optional. A nil publisher drops all events.
	var publisher *service.EventPublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = service.NewEventPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
	} else {
		logger.Log.Info("Event publishing disabled, no RabbitMQ host configured")
	}

	videoRepo := repository.NewVideoRepository(pool)
	sessionRepo := repository.NewAnalysisSessionRepository(pool)

	ingestionService := service.NewIngestionService(pool, videoRepo, ytClient, publisher, cfg.YouTube.MaxComments)
	analysisService := service.NewAnalysisService(videoRepo, sessionRepo, analyzer, publisher)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(pool, publisher)
	router.GET("/health", healthHandler.LivenessProbe)
	router.GET("/health/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewSessionAuth(cfg.Auth.Tokens)
	api := router.Group("/api", auth.Middleware())

	videoHandler := handler.NewVideoHandler(ingestionService, analysisService, cfg.Server.Debug)
	videoHandler.RegisterRoutes(api)

	// Sentiment runs make one model call per comment, so analysis routes
	// can far outlive a normal request. Write timeout stays disabled.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server stopped")
}

// newVideoProvider builds the YouTube client. A missing API key is a
// configuration error, not an upstream failure.
func newVideoProvider(ctx context.Context, cfg *config.Config, metaCache *cache.Cache) (*youtube.Client, error) {
	if cfg.YouTube.APIKey == "" {
		return nil, &service.ConfigError{Message: "youtube.api_key is required"}
	}
	return youtube.NewClient(ctx, cfg.YouTube.APIKey, cfg.YouTube.ApplicationName, metaCache)
}

func llmClient(cfg *config.Config) service.TextAnalyzer {
	if cfg.OpenAI.APIKey == "" {
		logger.Log.Info("Sentiment analysis and keyword extraction disabled, no OpenAI API key configured")
	}
	return llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
}
