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
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-admissions-api/api/swagger"
	"github.com/noah-isme/sma-admissions-api/internal/handler"
	"github.com/noah-isme/sma-admissions-api/internal/integration"
	internalmiddleware "github.com/noah-isme/sma-admissions-api/internal/middleware"
	"github.com/noah-isme/sma-admissions-api/internal/repository"
	"github.com/noah-isme/sma-admissions-api/internal/service"
	"github.com/noah-isme/sma-admissions-api/pkg/cache"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	"github.com/noah-isme/sma-admissions-api/pkg/config"
	"github.com/noah-isme/sma-admissions-api/pkg/database"
	"github.com/noah-isme/sma-admissions-api/pkg/jobs"
	"github.com/noah-isme/sma-admissions-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-admissions-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-admissions-api/pkg/pubsub"
)

// @title Admissions CRM API
// @version 1.0.0
// @description Enquiry stage progression and slot booking
// @BasePath /
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

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.Namespace)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()
	clk := clock.System{}

	enquiryRepo := repository.NewEnquiryRepository(db)
	logRepo := repository.NewEnquiryLogRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reminderRepo := repository.NewReferralReminderRepository(db)

	client := func(name, baseURL string) *integration.Client {
		return integration.NewClient(integration.ConfigFor(name, baseURL, cfg.Integrations), logr.Named(name))
	}
	mdm := integration.NewMDMClient(client("mdm", cfg.Integrations.MDMBaseURL))
	finance := integration.NewFinanceClient(client("finance", cfg.Integrations.FinanceBaseURL))
	workflow := integration.NewWorkflowClient(client("workflow", cfg.Integrations.WorkflowBaseURL))
	notifications := integration.NewNotificationClient(client("notification", cfg.Integrations.NotificationBaseURL))
	transport := integration.NewTransportClient(client("transport", cfg.Integrations.TransportBaseURL))

	bus := pubsub.NewMemory(cfg.Notifications.Buffer)
	defer bus.Close() //nolint:errcheck
	notifier := service.NewNotificationService(bus, bus, cfg.Notifications.Topic, notifications, metrics, logr.Named("notifications"))

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Slots.EquivalentSchoolCacheTTL, logr, redisClient != nil)
	schoolPools := service.NewEquivalentSchoolService(mdm, cacheSvc, cfg.Slots.EquivalentSchoolCacheTTL, metrics, logr)
	slots := service.NewSlotService(
		repository.NewSlotMasterRepository(db),
		repository.NewBookedSlotRepository(db),
		repository.NewUnavailableSlotRepository(db),
		schoolPools,
		clk,
		loc,
		validate,
		metrics,
		logr.Named("slots"),
	)

	followUps := service.NewFollowUpService(taskRepo, enquiryRepo, workflow, cfg.FollowUp, clk, metrics, logr.Named("follow_up"))
	referrals := service.NewReferralReminderService(reminderRepo, enquiryRepo, notifier, cfg.Referral, clk, metrics, logr.Named("referrals"))

	queue := jobs.NewQueue("referral-reminders", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr.Named("jobs"),
	})
	queue.Handle(service.JobTypeReferralReminder, referrals.Deliver)
	referrals.UseQueue(queue)

	stages := service.NewStageTransitionService(service.StageTransitionDeps{
		Enquiries:  enquiryRepo,
		Logs:       logRepo,
		Tasks:      followUps,
		Finance:    finance,
		Directory:  mdm,
		Workflow:   workflow,
		Transport:  transport,
		Referrals:  referrals,
		Notifier:   notifier,
		Metrics:    metrics,
		Clock:      clk,
		Validator:  validate,
		Logger:     logr.Named("stages"),
		Production: cfg.IsProduction(),
	})

	booking := service.BookingDeps{
		Enquiries: enquiryRepo,
		Slots:     slots,
		Stages:    stages,
		Logs:      logRepo,
		Notifier:  notifier,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr.Named("booking"),
	}
	competencyTests := service.NewCompetencyTestService(repository.NewCompetencyTestRepository(db), stages, booking)
	schoolVisits := service.NewSchoolVisitService(repository.NewSchoolVisitRepository(db), booking)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	registerRoutes(r, cfg.APIPrefix, handlers{
		stages:      handler.NewStageHandler(stages),
		slots:       handler.NewSlotHandler(slots),
		schoolPools: handler.NewSchoolPoolHandler(schoolPools),
		tests:       handler.NewCompetencyTestHandler(competencyTests),
		visits:      handler.NewSchoolVisitHandler(schoolVisits),
		tasks:       handler.NewTaskHandler(followUps),
		metrics: handler.NewMetricsHandler(metrics,
			handler.Probe{Name: "postgres", Check: db.PingContext},
			handler.Probe{Name: "redis", Check: cacheRepo.Ping},
		),
	}, !cfg.IsProduction())

	queue.Start(ctx)

	var background conc.WaitGroup
	background.Go(func() {
		if err := notifier.Run(ctx); err != nil {
			logr.Error("notification relay stopped", zap.Error(err))
		}
	})
	background.Go(func() {
		jobs.Every(ctx, "follow_up_sweep", cfg.FollowUp.SweepInterval, logr, followUps.Sweep)
	})
	background.Go(func() {
		jobs.Every(ctx, "referral_reminders", cfg.Referral.DeliveryInterval, logr, referrals.EnqueueDue)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	queue.Stop()
	background.Wait()
}
