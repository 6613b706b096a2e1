package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/societyspeaks/narrator/internal/audiojobs"
	"github.com/societyspeaks/narrator/internal/auth"
	"github.com/societyspeaks/narrator/internal/config"
	"github.com/societyspeaks/narrator/internal/database"
	"github.com/societyspeaks/narrator/internal/events"
	"github.com/societyspeaks/narrator/internal/health"
	"github.com/societyspeaks/narrator/internal/storage"
	"github.com/societyspeaks/narrator/internal/tts"
	"github.com/societyspeaks/narrator/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err.Error())
		}
	}

	// Storage fallback chain: GCS, then NATS object store, then local disk.
	// Backends that fail to initialize are left out of the chain rather than
	// failing startup; the filesystem backend always works.
	var backends []storage.Backend
	ctx := context.Background()
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSCDNDomain)
		if err != nil {
			logger.Warn("GCS backend unavailable", "error", err.Error())
		} else {
			backends = append(backends, gcs)
		}
	}
	if cfg.NATSURL != "" {
		ns, err := storage.NewNATSBackend(cfg.NATSURL)
		if err != nil {
			logger.Warn("NATS backend unavailable", "error", err.Error())
		} else {
			backends = append(backends, ns)
			defer ns.Close()
		}
	}
	fsBackend, err := storage.NewFilesystemBackend(cfg.AudioDataDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("failed to initialize filesystem storage: %v", err)
	}
	backends = append(backends, fsBackend)

	chain, err := storage.NewChain(logger, backends...)
	if err != nil {
		log.Fatalf("failed to build storage chain: %v", err)
	}

	// Progress events are best-effort; the service runs without them.
	var publisher audiojobs.EventPublisher
	if pub, err := events.NewPublisher(cfg.RedisURL); err != nil {
		logger.Warn("Events publisher unavailable", "error", err.Error())
	} else {
		publisher = pub
		defer pub.Close()
	}

	synth := tts.Engine(cfg.TTSBaseURL, cfg.TTSTimeout)
	svc := audiojobs.NewService(db, synth, chain, publisher, logger, cfg.StaleThreshold)

	// Background processing: embedded worker plus the interval scheduler.
	if err := worker.InitClient(cfg.RedisURL); err != nil {
		log.Fatalf("failed to initialize task client: %v", err)
	}
	defer worker.CloseClient()

	stopWorker, err := worker.Start(cfg, svc)
	if err != nil {
		log.Fatalf("failed to start worker: %v", err)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer stopScheduler()

	// HTTP surface
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	router.Use(sessions.Sessions("narrator_session", store))

	router.GET("/health", gin.WrapF(health.Handler))

	// Audio stored on the local-disk fallback is served from here.
	router.Static("/audio", cfg.AudioDataDir)

	api := router.Group("/api", auth.RequireAuth())
	{
		api.GET("/audio-jobs/:id", audiojobs.GetJobHandler(svc))
		api.POST("/audio-jobs", auth.RequireAdmin(), audiojobs.CreateJobHandler(svc, worker.EnqueueRunPass))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err.Error())
	}
}
