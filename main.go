// File: lokals/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lokals/config"
	"lokals/cron"
	"lokals/database"
	bookingRepoPkg "lokals/database/repository/booking"
	candidateRepoPkg "lokals/database/repository/candidate"
	"lokals/handlers"
	"lokals/routes"
	bookingSvc "lokals/services/booking"
	"lokals/services/dispatch"
	"lokals/services/notification"
	"lokals/services/notifier"
	"lokals/services/otp"
	"lokals/services/pricing"
	providerSvc "lokals/services/provider"
	"lokals/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	candidateRepo := candidateRepoPkg.NewMongoCandidateRepo()
	geoCache := candidateRepoPkg.NewGeoCache(utils.GetGeoCacheClient())

	// background queue.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	scheduler := &dispatch.AsynqScheduler{Client: asynqClient}

	// services.
	hub := notifier.NewHub(logger)

	notificationService := notification.NewDefaultNotificationService(utils.GetCacheClient(), logger)

	pricingService := &pricing.DefaultPricingService{
		Supply:   geoCache,
		Currency: config.AppConfig.Currency,
		Logger:   logger,
	}
	var gemini *pricing.GeminiClient
	if key := config.AppConfig.GeminiAPIKey; key != "" {
		intel, err := pricing.NewGeminiClient(key)
		if err != nil {
			logger.Sugar().Warnf("main: intelligence backend unavailable, pricing runs degraded: %v", err)
		} else {
			gemini = intel
			pricingService.Intel = intel
		}
	}

	otpService := &otp.DefaultOTPService{
		Repo:        bookingRepo,
		Hub:         hub,
		Notify:      notificationService,
		Length:      config.AppConfig.OTPLength,
		TTL:         config.OTPTTL(),
		MaxAttempts: config.AppConfig.OTPMaxAttempts,
		Logger:      logger,
	}

	coordinator := &dispatch.DefaultCoordinator{
		Bookings:     bookingRepo,
		Candidates:   candidateRepo,
		Rounds:       dispatch.NewRedisRoundStore(utils.GetDispatchCacheClient()),
		Scheduler:    scheduler,
		OTP:          otpService,
		Notify:       notificationService,
		Hub:          hub,
		Window:       config.DispatchWindow(),
		RadiusKm:     config.AppConfig.SearchRadiusKm,
		MaxRanked:    config.AppConfig.DispatchMaxRanked,
		QueryRetries: config.AppConfig.DispatchMaxRetries,
		RetryDelay:   time.Duration(config.AppConfig.DispatchRetryMillis) * time.Millisecond,
		Logger:       logger,
	}

	bookingService := &bookingSvc.DefaultBookingService{
		Repo:      bookingRepo,
		Pricing:   pricingService,
		Idem:      bookingSvc.NewRedisIdempotencyStore(utils.GetIdempotencyCacheClient()),
		Scheduler: scheduler,
		Hub:       hub,
		Notify:    notificationService,
		Logger:    logger,
	}

	providerService := &providerSvc.DefaultProviderService{
		Repo:   candidateRepo,
		Geo:    geoCache,
		Hub:    hub,
		Logger: logger,
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		CreateBookingHandler:   handlers.CreateBookingHandler(bookingService),
		GetBookingHandler:      handlers.GetBookingHandler(bookingService),
		CancelBookingHandler:   handlers.CancelBookingHandler(bookingService),
		CompleteBookingHandler: handlers.CompleteBookingHandler(bookingService),
		PayBookingHandler:      handlers.PayBookingHandler(bookingService),

		VerifyOTPHandler:  handlers.VerifyOTPHandler(otpService),
		ReissueOTPHandler: handlers.ReissueOTPHandler(otpService),

		RegisterProviderHandler: handlers.RegisterProviderHandler(providerService),
		SetActiveHandler:        handlers.SetActiveHandler(providerService),
		AcceptBookingHandler:    handlers.AcceptBookingHandler(coordinator),
		DeclineBookingHandler:   handlers.DeclineBookingHandler(coordinator),
		PendingRequestsHandler:  handlers.PendingRequestsHandler(coordinator),
		EnRouteHandler:          handlers.EnRouteHandler(bookingService),
		LocationPingHandler:     handlers.LocationPingHandler(providerService, bookingRepo),

		QuotePreviewHandler: handlers.QuotePreviewHandler(bookingService),
		CategoriesHandler:   handlers.CategoriesHandler(),
		ChecklistHandler:    handlers.ChecklistHandler(gemini),

		BookingEventsHandler:  handlers.BookingEventsHandler(hub, bookingRepo),
		RegisterDeviceHandler: handlers.RegisterDeviceHandler(notificationService),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the background dispatch worker and resume any searches that
	// were open when the process last died.
	cron.InitDispatchWorker(coordinator)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := coordinator.RecoverOpenSearches(ctx); err != nil {
			logger.Sugar().Warnf("main: failed to recover open searches: %v", err)
		}
		cancel()
	}

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
