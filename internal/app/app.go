package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	platformhealth "github.com/shestoi/coachcarter/platform/health/http"
	platformlogging "github.com/shestoi/coachcarter/platform/logging"
	platformobservability "github.com/shestoi/coachcarter/platform/observability"
	platformshutdown "github.com/shestoi/coachcarter/platform/shutdown"

	httpapi "github.com/shestoi/coachcarter/internal/api/http"
	"github.com/shestoi/coachcarter/internal/config"
	"github.com/shestoi/coachcarter/internal/notification"
	"github.com/shestoi/coachcarter/internal/payment/stripe"
	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/scheduler"
	"github.com/shestoi/coachcarter/internal/service"
	"github.com/shestoi/coachcarter/internal/templates"
)

// App содержит все зависимости для запуска и корректного shutdown booking сервиса
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	scheduler   *scheduler.Scheduler
	schedCtx    context.Context
	stopSched   context.CancelFunc
	schedDone   chan struct{}
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости booking сервиса
func Build(cfg config.Config) (_ *App, err error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "booking",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	buildLog := logger.With(zap.String("op", op))
	buildLog.Info("Building booking service", zap.String("http_addr", cfg.HTTPAddr))

	// Shutdown функции выполняются в обратном порядке регистрации:
	// HTTP сервер, затем планировщик, затем writer-ы и хранилища
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	defer func() {
		if err != nil {
			shutdownMgr.Shutdown()
		}
	}()

	// OpenTelemetry
	cfg.Observability.ServiceName = "booking"
	otelShutdown, err := platformobservability.Init(context.Background(), cfg.Observability)
	if err != nil {
		return nil, err
	}
	shutdownMgr.Add("otel", otelShutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checks := make(map[string]platformhealth.Check)

	bookings, err := openStore(ctx, cfg, buildLog, shutdownMgr, checks)
	if err != nil {
		return nil, err
	}
	statusCache, err := openSessionCache(ctx, cfg, buildLog, shutdownMgr, checks)
	if err != nil {
		return nil, err
	}

	outbound := newOutboundClient(15 * time.Second)

	// Stripe
	stripeOpts := []stripe.ClientOption{stripe.WithHTTPClient(outbound)}
	if cfg.StripeAPIURL != "" {
		stripeOpts = append(stripeOpts, stripe.WithBaseURL(cfg.StripeAPIURL))
	}
	stripeClient := stripe.NewClient(cfg.StripeSecretKey, logger, stripeOpts...)
	verifier := stripe.NewVerifier(cfg.StripeWebhookSecret)

	// Уведомления
	renderer, err := templates.NewRenderer(logger, cfg.TemplatesDir, cfg.SiteURL, cfg.FollowUpDelay)
	if err != nil {
		return nil, err
	}
	mailer, err := newMailer(cfg, buildLog)
	if err != nil {
		return nil, err
	}
	chatSender := newChatSender(cfg, buildLog, outbound)
	eventPublisher, dlqPublisher := newPublishers(cfg, buildLog, shutdownMgr)

	dispatcher := notification.NewDispatcher(logger, renderer, mailer, chatSender, dlqPublisher, notification.Config{
		MailFrom:       cfg.MailFrom,
		SystemMailFrom: cfg.SystemMailFrom,
		StaffEmail:     cfg.StaffEmail,
	})

	// Планировщик отложенных действий
	sched := scheduler.New(logger, bookings, cfg.Scheduler)
	actions := service.NewBookingActions(logger, bookings, dispatcher, eventPublisher)
	sched.Register(repository.ActionBookingNotifications, actions.SendBookingNotifications)
	sched.Register(repository.ActionAvailabilityRequest, actions.SendAvailabilityRequest)

	schedCtx, stopSched := context.WithCancel(context.Background())

	// Service слой
	processor := service.NewProcessor(logger, verifier, bookings, sched, service.WithFollowUpDelay(cfg.FollowUpDelay))
	sessionQuery := service.NewSessionQuery(logger, stripeClient, statusCache, bookings, cfg.SessionCacheTTL)
	availability := service.NewAvailabilityService(logger, bookings, dispatcher)
	checkout := service.NewCheckoutService(logger, stripeClient, cfg.SiteURL)

	// HTTP
	handler := httpapi.NewHandler(logger, processor, sessionQuery, availability, checkout, processor)
	router := httpapi.NewRouter(handler, platformhealth.Handler(2*time.Second, checks), httpapi.RouterConfig{
		AllowedOrigin: cfg.SiteURL,
		StaffKeyHash:  cfg.StaffKeyHash,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a := &App{
		logger:      logger,
		httpServer:  httpServer,
		scheduler:   sched,
		schedCtx:    schedCtx,
		stopSched:   stopSched,
		schedDone:   make(chan struct{}),
		shutdownMgr: shutdownMgr,
	}

	// действия, прерванные на середине, доберёт следующий экземпляр после истечения аренды
	shutdownMgr.Add("scheduler", func(ctx context.Context) error {
		a.stopSched()
		select {
		case <-a.schedDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return a, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting booking service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		defer close(a.schedDone)
		if err := a.scheduler.Start(a.schedCtx); err != nil {
			a.logger.Error("Action scheduler error", zap.Error(err))
		}
	}()

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Booking service stopped")
	return nil
}
