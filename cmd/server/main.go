// job-retrieval-backend
//
// Aggregates job listings from heterogeneous public sources (RemoteOK JSON
// API, SimplifyJobs New-Grad markdown repository) into one Postgres-backed
// feed with soft-delete liveness, and analyses uploaded resumes via an LLM.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/api"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/config"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/db"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/ingest"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/llm"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/resume"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/scheduler"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/source"
	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[server] Config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[server] PostgreSQL: %v", err)
	}
	defer pool.Close()
	logger.Info("postgres connected")

	store := storage.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("[server] Schema: %v", err)
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[server] Redis: %v", err)
		}
		defer rdb.Close()
		logger.Info("redis connected")
	} else {
		logger.Warn("REDIS_URL not set, feed cache and sync events disabled")
	}

	// ── LLM (optional) ───────────────────────────────────────────────────────
	var (
		llmClient     *llm.Client
		resumeService *resume.Service
	)
	if cfg.GeminiAPIKey != "" {
		llmClient, err = llm.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("[server] LLM client: %v", err)
		}
		resumeService = resume.NewService(llmClient, logger)
		logger.Info("llm client ready")
	} else {
		logger.Warn("GEMINI_API_KEY not set, llm and resume endpoints disabled")
	}

	// ── Pipeline ─────────────────────────────────────────────────────────────
	registry := source.NewRegistry()
	registry.Register(source.NewRemoteOK())
	registry.Register(source.NewSimplifyNewGrad(cfg.GitHubToken, logger))

	reconciler := ingest.New(store, logger)

	if cfg.SyncCron != "" {
		sched := scheduler.New(registry, reconciler, cfg.SyncCron, cfg.SyncLimit, cfg.SyncWindowDays, logger)
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("[server] Scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	router := gin.Default()
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	handler := api.New(registry, reconciler, store, rdb, llmClient, resumeService, logger, version)
	handler.Register(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[server] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("stopped")
}
