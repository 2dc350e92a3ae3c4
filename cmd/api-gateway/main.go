package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/satriadp/supervision-api/api/swagger"
	"github.com/satriadp/supervision-api/internal/handler"
	"github.com/satriadp/supervision-api/internal/middleware"
	"github.com/satriadp/supervision-api/internal/repository"
	"github.com/satriadp/supervision-api/internal/service"
	"github.com/satriadp/supervision-api/pkg/cache"
	"github.com/satriadp/supervision-api/pkg/config"
	"github.com/satriadp/supervision-api/pkg/database"
	"github.com/satriadp/supervision-api/pkg/export"
	"github.com/satriadp/supervision-api/pkg/logger"
	corsmiddleware "github.com/satriadp/supervision-api/pkg/middleware/cors"
	reqidmiddleware "github.com/satriadp/supervision-api/pkg/middleware/requestid"
)

// @title Supervision API
// @version 1.0.0
// @description Allocation and workflow engine for academic supervision
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, deadline cache and pubsub disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	capacityRepo := repository.NewCapacityRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	preThesisRepo := repository.NewPreThesisRepository(db)
	thesisRepo := repository.NewThesisRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	deadlineRepo := repository.NewDeadlineRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metrics := service.NewMetricsService()

	notifications := service.NewNotificationService(
		notificationRepo,
		redisClient,
		cfg.Notifications.Channel,
		cfg.Notifications.Workers,
		cfg.Notifications.BufferSize,
		metrics,
		logr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Notifications.Enabled {
		notifications.Queue().Start(ctx)
		defer notifications.Queue().Stop()
		metrics.RegisterQueueDepth("notifications", func() float64 {
			return float64(notifications.Queue().Depth())
		})
	}

	gate := service.NewDeadlineGate(deadlineRepo, redisClient, cfg.Deadlines.CacheTTL, metrics, logr)

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	periodService := service.NewPeriodService(periodRepo, validate, logr)
	deadlineService := service.NewDeadlineService(deadlineRepo, gate, logr)
	capacityService := service.NewCapacityService(capacityRepo, teacherRepo, periodRepo, db, validate, logr)
	topicService := service.NewTopicService(topicRepo, capacityRepo, periodRepo, db, validate, logr)
	applicationService := service.NewApplicationService(
		applicationRepo, topicRepo, capacityRepo, enrollmentRepo, preThesisRepo,
		studentRepo, periodRepo, notifications, db, metrics, validate, logr,
	)
	assignmentService := service.NewAssignmentService(
		topicRepo, capacityRepo, enrollmentRepo, preThesisRepo, thesisRepo, roleRepo,
		studentRepo, teacherRepo, periodRepo, notifications, db, metrics, validate, logr,
	)
	caseService := service.NewCaseService(preThesisRepo, thesisRepo, roleRepo, gradeRepo, logr)
	exportStorage := ""
	if cfg.Exports.Enabled {
		exportStorage = cfg.Exports.StorageDir
	}
	exportService := service.NewExportService(caseService, export.NewCSVExporter(), export.NewPDFExporter(), exportStorage, logr)
	submissionService := service.NewSubmissionService(submissionRepo, preThesisRepo, thesisRepo, roleRepo, gate, notifications, validate, logr)
	evaluationService := service.NewEvaluationService(gradeRepo, roleRepo, thesisRepo, preThesisRepo, enrollmentRepo, teacherRepo, gate, notifications, db, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, logr)
	rosterService := service.NewRosterService(studentRepo, teacherRepo, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, func(ctx context.Context) error {
		return database.Health(ctx, db)
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Periods:       handler.NewPeriodHandler(periodService),
		Deadlines:     handler.NewDeadlineHandler(deadlineService),
		Capacities:    handler.NewCapacityHandler(capacityService),
		Topics:        handler.NewTopicHandler(topicService),
		Applications:  handler.NewApplicationHandler(applicationService),
		Assignments:   handler.NewAssignmentHandler(assignmentService),
		Cases:         handler.NewCaseHandler(caseService, exportService),
		Submissions:   handler.NewSubmissionHandler(submissionService),
		Evaluations:   handler.NewEvaluationHandler(evaluationService),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentService),
		Students:      handler.NewStudentHandler(rosterService),
		Teachers:      handler.NewTeacherHandler(rosterService),
		Notifications: handler.NewNotificationHandler(notifications),
		Audit:         handler.NewAuditHandler(auditRepo),
	}, authService, auditRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
