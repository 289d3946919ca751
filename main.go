// File: parkly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkly/config"
	"parkly/cron"
	"parkly/database"
	bookingRepo "parkly/database/repository/booking"
	catalogRepo "parkly/database/repository/catalog"
	walletRepo "parkly/database/repository/wallet"
	"parkly/handlers"
	"parkly/middleware"
	"parkly/routes"
	"parkly/services/booking"
	"parkly/services/eta"
	"parkly/services/geofence"
	"parkly/services/notification"
	"parkly/services/pricing"
	"parkly/services/resolver"
	"parkly/services/wallet"
	"parkly/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitTrackerCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bkRepo := bookingRepo.NewMongoBookingRepo()
	wlRepo := walletRepo.NewMongoWalletRepo()
	ctRepo := catalogRepo.NewMongoCatalogRepo()
	if err := bkRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}
	if err := wlRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure wallet indexes: %v", err)
	}
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ctRepo.EnsureIndexes(indexCtx); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure catalog indexes: %v", err)
	}
	cancelIndex()

	// services.
	ledger := wallet.NewLedgerService(wlRepo, logger)

	quoteEngine := &pricing.DefaultQuoteEngine{
		Tariffs: ctRepo,
		Occupancy: &pricing.RepoOccupancySource{
			Bookings: bkRepo,
			Catalog:  ctRepo,
		},
		Holidays: &pricing.StaticHolidaySource{Dates: map[string]bool{}},
		Cfg:      config.AppConfig.Booking,
		Logger:   logger,
	}

	sessionStore := geofence.NewRedisSessionStore(utils.GetTrackerCacheClient())
	tracker := geofence.NewTracker(sessionStore, config.AppConfig.Booking, logger)

	tokenSource := notification.NewRedisTokenSource(utils.GetCacheClient())
	var notifier notification.Sink
	if config.IsProduction() {
		notifier = notification.NewFCMSink(tokenSource, logger)
	} else {
		notifier = &notification.LogSink{Logger: logger}
	}

	engine := booking.NewBookingService(
		bkRepo,
		ledger,
		quoteEngine,
		tracker,
		ctRepo,
		ctRepo,
		eta.NewGoogleRouteProvider(),
		notifier,
		config.AppConfig.Booking,
		config.AppConfig.PlatformWalletID,
		logger,
	)

	res := resolver.NewResolver(bkRepo, engine, quoteEngine, config.AppConfig.Booking, logger)

	// Make sure the platform escrow wallet exists before any capture targets it.
	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := ledger.EnsureWallet(ensureCtx, config.AppConfig.PlatformWalletID); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure platform wallet: %v", err)
	}
	cancelEnsure()

	// Background sweeps.
	cron.InitSweepWorker(engine, res, tracker)

	// Health monitor over the shared dependencies.
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetTrackerCacheClient()},
		database.MongoClient,
	)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Booking:  handlers.NewBookingHandler(engine),
		Location: handlers.NewLocationHandler(engine),
		Wallet:   handlers.NewWalletHandler(ledger),
		Resolver: handlers.NewResolverHandler(res),
		Catalog:  handlers.NewCatalogHandler(ctRepo),
		Device:   handlers.NewDeviceHandler(tokenSource),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

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
