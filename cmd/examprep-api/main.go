package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/examprep-api/api/swagger"
	"github.com/noah-isme/examprep-api/internal/handler"
	"github.com/noah-isme/examprep-api/internal/middleware"
	"github.com/noah-isme/examprep-api/internal/repository"
	"github.com/noah-isme/examprep-api/internal/service"
	"github.com/noah-isme/examprep-api/pkg/cache"
	"github.com/noah-isme/examprep-api/pkg/config"
	"github.com/noah-isme/examprep-api/pkg/database"
	"github.com/noah-isme/examprep-api/pkg/jobs"
	"github.com/noah-isme/examprep-api/pkg/llm"
	"github.com/noah-isme/examprep-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/examprep-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/examprep-api/pkg/middleware/requestid"
	"github.com/noah-isme/examprep-api/pkg/vectorstore"
)

// @title ExamPrep API
// @version 1.0.0
// @description Exam preparation backend: catalog, answers, progress, AI tutor and admin panel.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, exam cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metrics,
		cfg.Cache.TTL,
		logr,
		cfg.Cache.Enabled && redisClient != nil,
	)

	validate := service.NewValidator()

	users := repository.NewUserRepository(db)
	exams := repository.NewExamRepository(db)
	questions := repository.NewQuestionRepository(db)
	progress := repository.NewProgressRepository(db)
	audits := repository.NewAuditRepository(db)

	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.Expiration)
	if err != nil {
		logr.Fatal("failed to init token service", zap.Error(err))
	}
	hasher := service.NewCredentialHasher(bcrypt.DefaultCost)

	llmClient := llm.New(llm.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		Model:          cfg.AI.Model,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AI.Timeout,
	}, logr)
	vectors := vectorstore.New(vectorstore.Config{
		APIKey:    cfg.Vector.APIKey,
		IndexHost: cfg.Vector.IndexHost,
		Namespace: cfg.Vector.Namespace,
		Timeout:   cfg.Vector.Timeout,
	}, logr)

	indexer := service.NewQuestionIndexer(questions, llmClient, vectors, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Indexer.Workers,
		MaxRetries: cfg.Indexer.MaxRetries,
		Logger:     logr,
	})
	indexer.Start(ctx)
	defer indexer.Stop()

	auditSvc := service.NewAuditService(audits, logr)
	authSvc := service.NewAuthService(users, hasher, tokens, auditSvc, validate, logr)
	examSvc := service.NewExamService(exams, questions, cacheSvc, validate, logr)
	questionSvc := service.NewQuestionService(questions, exams, examSvc, indexer, validate, logr)
	progressSvc := service.NewProgressService(users, exams, progress, logr)
	answerSvc := service.NewAnswerService(questions, progress, metrics, logr)
	userSvc := service.NewUserService(users, hasher, auditSvc, validate, logr)
	exportSvc := service.NewExportService(userSvc, progressSvc, logr)
	aiSvc := service.NewAIService(llmClient, questions, exams, progress, indexer, metrics, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Exams:    handler.NewExamHandler(examSvc),
		Progress: handler.NewProgressHandler(progressSvc),
		Answers:  handler.NewAnswerHandler(answerSvc),
		AI:       handler.NewAIHandler(aiSvc),
		Users:    handler.NewUserHandler(userSvc, progressSvc, exportSvc),
		Catalog:  handler.NewCatalogHandler(examSvc, questionSvc),
		Audit:    handler.NewAuditHandler(auditSvc),
		Metrics:  handler.NewMetricsHandler(metrics, repository.NewStore(db), logr),
	}, authSvc, auditSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "ai_enabled", llmClient.Enabled(), "indexer_enabled", indexer.Enabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
