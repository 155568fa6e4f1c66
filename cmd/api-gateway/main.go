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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sice-api/api/swagger"
	"github.com/noah-isme/sice-api/internal/handler"
	"github.com/noah-isme/sice-api/internal/repository"
	"github.com/noah-isme/sice-api/internal/server"
	"github.com/noah-isme/sice-api/internal/service"
	"github.com/noah-isme/sice-api/pkg/cache"
	"github.com/noah-isme/sice-api/pkg/config"
	"github.com/noah-isme/sice-api/pkg/database"
	"github.com/noah-isme/sice-api/pkg/jobs"
	"github.com/noah-isme/sice-api/pkg/logger"
	"github.com/noah-isme/sice-api/pkg/storage"
)

// @title SICE API
// @version 1.0.0
// @description Academic records service: users, students, subjects, enrollments, grades and reports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(db.DB); err != nil {
			return err
		}
		logr.Info("database migrated")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	metricsSvc := service.NewMetricsService()

	var (
		cacheRepo   service.CacheRepository
		cachePinger handler.Pinger
	)
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, "sice:")
		defer redisRepo.Close()
		cacheRepo = redisRepo
		cachePinger = redisRepo
		logr.Info("redis cache enabled")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.StatsCacheTTL, logr)

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare uploads dir: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.PhotoURLSecret, cfg.Uploads.PhotoURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	profileRepo := repository.NewTeacherProfileRepository(db)
	reportRepo := repository.NewReportRepository(db)

	validate := validator.New()
	hasher := service.NewPasswordHasher(cfg.Security.BcryptCost)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	authSvc := service.NewAuthService(userRepo, tokens, hasher, validate, logr)
	userSvc := service.NewUserService(userRepo, hasher, validate, logr, cacheSvc)
	studentSvc := service.NewStudentService(studentRepo, subjectRepo, enrollmentRepo, validate, logr, cacheSvc)
	subjectSvc := service.NewSubjectService(subjectRepo, enrollmentRepo, studentRepo, validate, logr, cacheSvc)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, subjectRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, gradeRepo, studentRepo, subjectRepo, userRepo, cacheSvc,
		service.ReportServiceConfig{StatsTTL: cfg.Reports.StatsCacheTTL}, logr)
	profileSvc := service.NewProfileService(profileRepo, userRepo, files, signer, metricsSvc, validate,
		service.ProfileServiceConfig{
			MaxPhotoBytes: cfg.Uploads.MaxPhotoBytes,
			PhotoURLBase:  cfg.APIPrefix + server.PhotoRoute,
		}, logr)

	cleanupQueue := jobs.NewQueue("photo-cleanup", profileSvc.HandleCleanup, jobs.QueueConfig{
		Workers:    cfg.Uploads.CleanupWorkers,
		MaxRetries: cfg.Uploads.CleanupRetries,
		RetryDelay: cfg.Uploads.CleanupRetryWait,
		Logger:     logr,
	})
	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()
	profileSvc.UseCleanupQueue(cleanupQueue)

	router := server.NewRouter(server.Deps{
		Config:        cfg,
		Logger:        logr,
		Metrics:       metricsSvc,
		Authenticator: authSvc,
		Handlers: server.Handlers{
			Auth:     handler.NewAuthHandler(authSvc),
			Users:    handler.NewUserHandler(userSvc, profileSvc),
			Students: handler.NewStudentHandler(studentSvc),
			Subjects: handler.NewSubjectHandler(subjectSvc, reportSvc),
			Grades:   handler.NewGradeHandler(gradeSvc),
			Reports:  handler.NewReportHandler(reportSvc),
			Files:    handler.NewFileHandler(profileSvc),
			Health:   handler.NewHealthHandler(db, cachePinger),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logr.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
