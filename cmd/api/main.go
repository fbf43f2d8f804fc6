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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gymflow/gymflow-api/api/swagger"
	"github.com/gymflow/gymflow-api/internal/handler"
	internalmiddleware "github.com/gymflow/gymflow-api/internal/middleware"
	"github.com/gymflow/gymflow-api/internal/repository"
	"github.com/gymflow/gymflow-api/internal/service"
	"github.com/gymflow/gymflow-api/pkg/cache"
	"github.com/gymflow/gymflow-api/pkg/config"
	"github.com/gymflow/gymflow-api/pkg/database"
	"github.com/gymflow/gymflow-api/pkg/logger"
	corsmiddleware "github.com/gymflow/gymflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gymflow/gymflow-api/pkg/middleware/requestid"
)

// @title GymFlow API
// @version 0.1.0
// @description Fitness class booking, waitlist and membership lifecycle API
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	memberRepo := repository.NewMemberRepository(db)
	classRepo := repository.NewClassRepository(db)
	trainerRepo := repository.NewTrainerRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notifications := service.NewNotificationService(waitlistRepo, service.NotificationConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		MaxRetries: cfg.Notify.MaxRetries,
	}, logr)

	waitlistSvc := service.NewWaitlistService(service.WaitlistServiceParams{
		Repo:        waitlistRepo,
		Seats:       bookingRepo,
		Members:     memberRepo,
		Classes:     classRepo,
		Notifier:    notifications,
		MaxAttempts: cfg.Rules.PromotionMaxAttempts,
		Validator:   validate,
		Logger:      logr,
		Metrics:     metrics,
	})

	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Repo:                 bookingRepo,
		Members:              memberRepo,
		Classes:              classRepo,
		Waiting:              waitlistRepo,
		Promoter:             waitlistSvc,
		Cache:                cacheRepo,
		CacheTTL:             cfg.Availability.CacheTTL,
		CancellationDeadline: cfg.Rules.CancellationDeadline,
		Validator:            validate,
		Logger:               logr,
		Metrics:              metrics,
	})

	classSvc := service.NewClassService(classRepo, trainerRepo, validate, logr)
	rosterSvc := service.NewRosterService(bookingRepo, classRepo, logr)
	lifecycleSvc := service.NewMembershipLifecycleService(
		memberRepo, waitlistSvc, cfg.Rules.GracePeriodDays, cfg.Lifecycle.Interval, logr, metrics)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifications.Start(rootCtx)
	defer notifications.Stop()

	if cfg.Lifecycle.Enabled {
		lifecycleSvc.Start(rootCtx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, handlers{
		bookings:   handler.NewBookingHandler(bookingSvc),
		waitlist:   handler.NewWaitlistHandler(waitlistSvc),
		classes:    handler.NewClassHandler(classSvc, bookingSvc),
		membership: handler.NewMembershipHandler(lifecycleSvc),
		roster:     handler.NewRosterHandler(rosterSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

type handlers struct {
	bookings   *handler.BookingHandler
	waitlist   *handler.WaitlistHandler
	classes    *handler.ClassHandler
	membership *handler.MembershipHandler
	roster     *handler.RosterHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h handlers) {
	api := r.Group(cfg.APIPrefix)

	classes := api.Group("/classes")
	{
		classes.GET("", h.classes.List)
		classes.GET("/:id", h.classes.Get)
		classes.GET("/:id/availability", h.classes.Availability)
		classes.GET("/:id/waitlist", h.waitlist.ListForClass)
	}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(cfg.JWT.Secret))
	{
		secured.GET("/bookings", h.bookings.List)
		secured.GET("/bookings/eligibility", h.bookings.Eligibility)
		secured.GET("/bookings/:id", h.bookings.Get)
		secured.POST("/bookings", h.bookings.Create)
		secured.PUT("/bookings/:id/cancel", h.bookings.Cancel)
		secured.PUT("/bookings/:id/re-enroll", h.bookings.ReEnroll)

		secured.POST("/waitlist", h.waitlist.Join)
		secured.DELETE("/waitlist/:id", h.waitlist.Remove)
		secured.GET("/waitlist/:id/position", h.waitlist.Position)
	}

	admin := api.Group("")
	admin.Use(internalmiddleware.JWT(cfg.JWT.Secret), internalmiddleware.RBAC("ADMIN", "MANAGER"))
	{
		admin.POST("/classes", h.classes.Create)
		admin.PUT("/classes/:id", h.classes.Update)
		admin.PUT("/classes/:id/bookings/cancel", h.classes.CancelBookings)
		admin.GET("/classes/:id/roster/export", h.roster.Export)
		admin.POST("/waitlist/expire", h.waitlist.Expire)
		admin.POST("/membership/lifecycle/run", h.membership.RunLifecycle)
	}
}
