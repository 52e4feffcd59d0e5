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

	_ "github.com/edupanel/scheduling-api/api/swagger"
	"github.com/edupanel/scheduling-api/internal/handler"
	"github.com/edupanel/scheduling-api/internal/middleware"
	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/internal/repository"
	"github.com/edupanel/scheduling-api/internal/service"
	"github.com/edupanel/scheduling-api/pkg/cache"
	"github.com/edupanel/scheduling-api/pkg/config"
	"github.com/edupanel/scheduling-api/pkg/database"
	"github.com/edupanel/scheduling-api/pkg/jobs"
	"github.com/edupanel/scheduling-api/pkg/logger"
	corsmiddleware "github.com/edupanel/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupanel/scheduling-api/pkg/middleware/requestid"
)

// @title School Scheduling API
// @version 1.0.0
// @description Class booking, conflict detection, teacher reassignment and schedule request approval.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, booking cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	assignmentRepo := repository.NewAssignedScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	requestRepo := repository.NewScheduleRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, courseRepo, assignmentRepo, userRepo,
		cacheRepo, notificationSvc, validate, logr, cfg.Bookings.CacheTTL).WithMetrics(metricsSvc)
	reassignmentSvc := service.NewReassignmentService(bookingRepo, assignmentRepo, courseRepo, userRepo,
		notificationSvc, logr)
	requestSvc := service.NewScheduleRequestService(requestRepo, userRepo, courseRepo, bookingRepo,
		notificationSvc, validate, logr)
	reportSvc := service.NewReportService(bookingRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	reassignmentHandler := handler.NewReassignmentHandler(reassignmentSvc, metricsSvc)
	requestHandler := handler.NewScheduleRequestHandler(requestSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/bookings", bookingHandler.List)
	authed.GET("/bookings/:id", bookingHandler.Get)
	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/reports/bookings.csv", reportHandler.BookingsCSV)
	authed.GET("/reports/bookings.pdf", reportHandler.BookingsPDF)

	teacherOps := authed.Group("")
	teacherOps.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	teacherOps.POST("/schedule-requests", requestHandler.Create)

	adminOps := authed.Group("")
	adminOps.Use(middleware.RequireRoles(models.RoleAdmin))
	adminOps.POST("/bookings", bookingHandler.Create)
	adminOps.PUT("/bookings/:id", bookingHandler.Update)
	adminOps.DELETE("/bookings/:id", bookingHandler.Delete)
	adminOps.POST("/bookings/:id/examiner", bookingHandler.AssignExaminer)
	adminOps.POST("/bookings/:id/cancel-reassign", reassignmentHandler.CancelAndReassign)
	adminOps.POST("/schedules/:id/reassign", reassignmentHandler.Reassign)
	adminOps.GET("/schedule-requests/pending", requestHandler.ListPending)
	adminOps.POST("/schedule-requests/:id/process", requestHandler.Process)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
