package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-publisher/domain/repository"
	"media-publisher/infrastructure/cache"
	"media-publisher/infrastructure/clients"
	"media-publisher/infrastructure/clients/tiktok"
	youtubeclient "media-publisher/infrastructure/clients/youtube"
	"media-publisher/infrastructure/configuration"
	"media-publisher/infrastructure/logger"
	"media-publisher/infrastructure/persistence"
	"media-publisher/infrastructure/pubsub"
	"media-publisher/infrastructure/realtime"
	"media-publisher/infrastructure/servicebus"
	"media-publisher/infrastructure/upload"
	httpHandler "media-publisher/interfaces/http"
	"media-publisher/server"
	"media-publisher/usecase"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	credentialDb, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("MongoDB initialization failed; publish jobs need it")
		os.Exit(1)
	}
	if err := persistence.EnsurePublishJobIndexes(ctx, mongoDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring publish job indexes")
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis initialization failed; credential cache and auth tasks need it")
		os.Exit(1)
	}
	logger.GetLogger().Info("Redis client initialized successfully.")

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without it")
		pubSubClient = nil
	}
	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without it")
		azServiceBusClient = nil
	}

	// Platform adapters
	tiktokClient := tiktok.NewClient(tiktok.Config{
		ClientID:     configuration.C.OAuth.Tiktok.ClientID,
		ClientSecret: configuration.C.OAuth.Tiktok.ClientSecret,
		RedirectURI:  configuration.C.OAuth.Tiktok.RedirectURI,
		Scopes:       configuration.C.OAuth.Tiktok.Scopes,
	}, nil)
	youtubeClient := youtubeclient.NewYouTubeClient(&youtubeclient.Config{
		ClientID:     configuration.C.OAuth.Youtube.ClientID,
		ClientSecret: configuration.C.OAuth.Youtube.ClientSecret,
		RedirectURL:  configuration.C.OAuth.Youtube.RedirectURI,
	}, nil)
	registry := clients.NewRegistry(tiktokClient, youtubeClient)

	// Stores
	credentialStore := NewCredentialStore(credentialDb)
	credentialCache := cache.NewCredentialCache(redisClient)
	authTaskStore := cache.NewAuthTaskStore(redisClient)
	jobRepository := persistence.NewPublishJobRepository(mongoDb)

	// Job status fanout
	jobHub := realtime.NewJobHub()
	notifiers := []repository.IJobNotifier{jobHub}
	if pubSubClient != nil {
		notifiers = append(notifiers, pubsub.NewJobNotifier(pubSubClient, configuration.C.Pubsub.Topic))
	}
	if azServiceBusClient != nil {
		notifiers = append(notifiers, servicebus.NewJobNotifier(azServiceBusClient, configuration.C.ServiceBus.Queue))
	}

	pollInterval := time.Duration(configuration.C.Publish.PollIntervalSeconds) * time.Second
	pollTimeout := time.Duration(configuration.C.Publish.PollTimeoutSeconds) * time.Second
	taskTTL := time.Duration(configuration.C.Publish.AuthTaskTTLSeconds) * time.Second
	taskExt := time.Duration(configuration.C.Publish.AuthTaskExtSeconds) * time.Second

	fetcher := upload.NewSourceFetcher(nil)
	engine := upload.NewEngine(nil, fetcher)

	credentialUsecase := usecase.NewCredentialUsecase(credentialStore, credentialCache, registry)
	authorizationUsecase := usecase.NewAuthorizationUsecase(authTaskStore, registry, credentialUsecase, taskTTL, taskExt)
	publishUsecase := usecase.NewPublishUsecase(
		jobRepository, registry, credentialUsecase, fetcher, engine, notifiers,
		pollInterval, pollTimeout, configuration.C.Publish.ChunkSizeBytes,
	)

	authorizationHandler := httpHandler.NewAuthorizationHandler(authorizationUsecase, credentialUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)

	router := server.InitiateRouter(authorizationHandler, publishHandler,
		func(c *gin.Context) { jobHub.Serve(c) })

	// Background reconciler: sweeps non-terminal jobs on a ticker so webhook
	// gaps and process restarts still converge every job to a terminal state.
	g.Go(func() error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, pollInterval)
				if err := publishUsecase.ReconcileActive(sweepCtx); err != nil {
					logger.GetLogger().WithField("error", err).Warn("reconcile sweep failed")
				}
				cancelSweep()
			}
		}
	})

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase picks the credential store vendor: MSSQL in production (or
// with DB_VENDOR=mssql), PostgreSQL otherwise.
func InitiateDatabase() (*sql.DB, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		if err := persistence.EnsureCredentialSchemaMSSQL(mssql); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring credential schema")
		}
		return mssql, nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, err
	}
	if err := persistence.EnsureCredentialSchema(postgres); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring credential schema")
	}
	return postgres, nil
}

// NewCredentialStore returns the vendor-appropriate credential repository for
// the already-opened database handle.
func NewCredentialStore(db *sql.DB) repository.ICredentialStore {
	if os.Getenv("DB_VENDOR") == "mssql" || os.Getenv("ENV") == "production" || os.Getenv("ENV") == "prod" {
		return persistence.NewCredentialRepositoryMSSQL(db)
	}
	return persistence.NewCredentialRepository(db)
}
