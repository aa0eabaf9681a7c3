package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/adapters"
	"github.com/satriahrh/assistbridge/server/adapters/alexa"
	"github.com/satriahrh/assistbridge/server/adapters/assistant"
	"github.com/satriahrh/assistbridge/server/adapters/geocode"
	"github.com/satriahrh/assistbridge/server/adapters/lame"
	"github.com/satriahrh/assistbridge/server/adapters/mongo"
	"github.com/satriahrh/assistbridge/server/adapters/redis"
	"github.com/satriahrh/assistbridge/server/adapters/registration"
	"github.com/satriahrh/assistbridge/server/adapters/storage"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
	"github.com/satriahrh/assistbridge/server/internal/api"
	"github.com/satriahrh/assistbridge/server/internal/assist"
	"github.com/satriahrh/assistbridge/server/internal/auth"
	"github.com/satriahrh/assistbridge/server/internal/config"
	"github.com/satriahrh/assistbridge/server/internal/metrics"
	"github.com/satriahrh/assistbridge/server/internal/transcode"
	"github.com/satriahrh/assistbridge/server/usecase"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	authenticator := auth.NewAuthenticator(cfg.JWTSecret)
	if *issueToken != "" {
		token, err := authenticator.GenerateUserToken(*issueToken, *tokenTTL)
		if err != nil {
			logger.Fatal("Failed to generate token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()

	contexts, closeStore, err := newContextRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize context store", zap.Error(err))
	}
	defer closeStore()

	// Initialize adapters
	conn, err := assistant.Dial(cfg.AssistantEndpoint + ":443")
	if err != nil {
		logger.Fatal("Failed to connect to the assistant API", zap.Error(err))
	}
	defer conn.Close()

	transport := assistant.NewGoogleAssistant(conn, assistant.Config{
		DeviceModelID: cfg.ProjectID,
		DeviceID:      cfg.ProjectID,
	}, logger)

	mode, err := transcode.ParseChannelMode(cfg.MP3Mode)
	if err != nil {
		logger.Fatal("Invalid MP3 mode", zap.Error(err))
	}
	format := transcode.DefaultFormat
	format.BitRate = cfg.MP3BitRate
	format.Mode = mode
	transcoder := transcode.NewTranscoder(lame.NewEncoder, transcode.Config{
		Gain:   cfg.AudioGain,
		Format: format,
	}, logger)

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize S3", zap.Error(err))
	}
	audioStorage := storage.NewS3Storage(s3Client, s3.NewPresignClient(s3Client), cfg.S3Bucket, cfg.S3URLExpiry, logger)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	registrar := registration.NewProjectRegistrar(httpClient, registration.Config{
		BaseURL:   "https://" + cfg.AssistantEndpoint,
		ProjectID: cfg.ProjectID,
	}, logger)

	var (
		addresses repositories.DeviceAddressProvider
		geocoder  repositories.Geocoder
	)
	if cfg.MapsAPIKey != "" {
		g, err := geocode.NewGoogleMapsGeocoder(cfg.MapsAPIKey, logger)
		if err != nil {
			logger.Fatal("Failed to initialize geocoder", zap.Error(err))
		}
		geocoder = g
		addresses = alexa.NewDeviceAddressClient(httpClient, logger)
	} else {
		logger.Info("GOOGLE_MAPS_API_KEY not set, device location lookup disabled")
	}

	session := assist.NewSession(transport, assist.Config{
		Timeout:          cfg.AssistTimeout,
		MaxAudioDuration: cfg.MaxAudioDuration,
		TempDir:          cfg.TempDir,
		AudioOut:         assist.DefaultConfig().AudioOut,
	}, logger)

	m := metrics.NewMetrics("assistbridge", prometheus.DefaultRegisterer)

	// Initialize usecase services
	assistantService := usecase.NewAssistantService(
		session,
		transcoder,
		audioStorage,
		contexts,
		registrar,
		addresses,
		geocoder,
		m,
		logger,
	)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, assistantService, authenticator, metrics.Handler(prometheus.DefaultGatherer), logger)

	port := strconv.Itoa(cfg.Port)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", port),
		zap.String("contextStore", cfg.ContextStore),
		zap.String("assistantEndpoint", cfg.AssistantEndpoint))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newContextRepository selects the configured context store. The returned
// function releases its connection.
func newContextRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ContextRepository, func(), error) {
	switch cfg.ContextStore {
	case config.StoreMongo:
		store, err := mongo.Connect(ctx, mongo.StoreConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, logger)
		if err != nil {
			return nil, nil, err
		}
		return mongo.NewContextRepository(store.Database()), func() { store.Close(context.Background()) }, nil

	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewContextRepository(client, cfg.RedisContextTTL), func() { client.Close() }, nil

	default:
		logger.Warn("Using in-memory context store, conversations are lost on restart")
		return adapters.NewMemoryContextRepository(), func() {}, nil
	}
}
