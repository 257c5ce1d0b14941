package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Yonsn76/api-zoomTV/internal/cfg"
	"github.com/Yonsn76/api-zoomTV/internal/media"
	"github.com/Yonsn76/api-zoomTV/internal/users"
)

func main() {
	config := cfg.LoadConfig()
	if len(config.JWTSecret) < 32 {
		log.Fatalf("JWT_SECRET must be at least 32 characters long for security")
	}

	logger, err := newLogger(config.LogDev)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", zap.Error(err))
		}
	}()

	db := mongoClient.Database(config.MongoDatabase)

	store, err := newChunkStore(config, db)
	if err != nil {
		logger.Fatal("failed to init chunk store", zap.Error(err))
	}

	var redisClient *redis.Client
	if config.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
	}

	repo := media.NewRepository(db.Collection(config.MongoCollection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}

	directory := users.NewDirectory(db.Collection(config.UsersCollection))
	service := media.NewService(repo, store, directory, config.MaxFileSizeBytes, logger)
	authorizer := media.NewAuthorizer([]byte(config.JWTSecret), redisClient, directory)
	handler := media.NewHandler(service, authorizer, config.MaxFileSizeBytes, config.MaxBatchFiles, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Routes())

	// Batch uploads carry up to MaxBatchFiles payloads plus multipart
	// framing overhead.
	bodyLimit := config.MaxFileSizeBytes*int64(config.MaxBatchFiles) + 1024*1024

	chain := media.SecurityHeadersMiddleware(
		media.CORSMiddleware(config.CORSOrigins)(
			media.RequestSizeLimitMiddleware(bodyLimit)(
				media.RequestLoggerMiddleware(logger)(
					media.MetricsMiddleware()(mux),
				),
			),
		),
	)

	httpPort := config.HTTPPort
	if httpPort == "" {
		httpPort = "8082"
	}
	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: chain,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
}

func newChunkStore(config cfg.Config, db *mongo.Database) (media.ChunkStore, error) {
	if config.StorageBackend == "minio" {
		return media.NewMinioStore(
			config.MinioEndpoint,
			config.MinioAccessKey,
			config.MinioSecretKey,
			config.MinioUseSSL,
			config.MinioBucket,
		)
	}
	return media.NewGridFSStore(db, config.MongoBucket)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return config.Build()
	}
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config.Build()
}
