package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/yoockh/unistep/config"
	"github.com/yoockh/unistep/internal/api/handlers"
	"github.com/yoockh/unistep/internal/api/middleware"
	"github.com/yoockh/unistep/internal/api/routes"
	"github.com/yoockh/unistep/internal/cache"
	"github.com/yoockh/unistep/internal/logger"
	"github.com/yoockh/unistep/internal/notify"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	pgrepo "github.com/yoockh/unistep/internal/repositories/postgres"
	"github.com/yoockh/unistep/internal/services"
	"github.com/yoockh/unistep/internal/session"
	"github.com/yoockh/unistep/internal/storage"
	"github.com/yoockh/unistep/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objects, closeObjects, err := openObjectStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("object store init error")
	}
	defer closeObjects()

	// repositories
	db := config.MongoClient.Database(cfg.MongoDB)
	universities := mongorepo.NewUniversityRepo(db)
	applications := mongorepo.NewApplicationRepo(db)
	uploads := pgrepo.NewUploadRepo(config.PostgresDB)

	// infrastructure
	rc := cache.NewRedisCache(config.RedisClient)
	sessions := session.NewRedisStore(config.RedisClient)
	tokens := session.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	publisher := &workers.StreamPublisher{Redis: config.RedisClient, Stream: cfg.SubmitStream, MaxLen: cfg.SubmitStreamMax}

	// services
	departments := services.NewDepartmentService(universities)
	wizards := services.NewWizardService(services.WizardDeps{
		Applications: applications,
		Departments:  departments,
		Objects:      objects,
		Notifier:     notify.NewRedisNotifier(config.RedisClient),
		Uploads:      uploads,
		Publisher:    publisher,
		Logger:       log,
		IdleTTL:      cfg.WizardIdleTTL,
	})
	authSvc := services.NewAuthService(universities, sessions, tokens, log)
	siteSvc := services.NewSiteService(universities, objects, rc, cfg.SiteCacheTTL, log)
	dashSvc := services.NewDashboardService(universities, applications, rc, cfg.StatsCacheTTL, log)

	go wizards.Run(ctx, cfg.SweepInterval)

	pool := &workers.SubmissionWorkerPool{
		Redis:      config.RedisClient,
		Ledger:     uploads,
		Cache:      rc,
		NumWorkers: cfg.Workers,
		Logger:     log,
		Stream:     cfg.SubmitStream,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("submission workers init error")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:        handlers.NewAuthHandler(authSvc),
		Site:        handlers.NewSiteHandler(siteSvc, cfg.MaxUploadBytes),
		Wizard:      handlers.NewWizardHandler(wizards, cfg.MaxUploadBytes),
		Dashboard:   handlers.NewDashboardHandler(dashSvc),
		WS:          handlers.NewWSHandler(wizards, config.RedisClient, log, cfg.AllowedOrigins),
		SessionAuth: middleware.SessionAuth(tokens, sessions),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	_ = config.MongoClient.Disconnect(shutdownCtx)
	_ = config.RedisClient.Close()
}

func openObjectStore(ctx context.Context, cfg config.App) (storage.ObjectStore, func(), error) {
	switch cfg.StorageDriver {
	case "minio":
		s, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
			PublicURL: cfg.MinIO.PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		var opts []option.ClientOption
		if cfg.GCSCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentials))
		}
		s, err := storage.NewGCSStore(ctx, cfg.GCSBucket, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logrus.WithError(err).Warn("gcs close")
			}
		}, nil
	}
}
