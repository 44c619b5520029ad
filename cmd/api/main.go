package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stocktracker/internal/config"
	"stocktracker/internal/dashboard"
	"stocktracker/internal/database"
	"stocktracker/internal/handlers"
	"stocktracker/internal/logger"
	"stocktracker/internal/market"
	"stocktracker/internal/middleware"
	"stocktracker/internal/services"
	"stocktracker/internal/validator"

	_ "stocktracker/internal/docs" // Import swagger docs
)

// @title           Stock Tracker API
// @version         1.0
// @description     Watchlists, price alert definitions and live quotes for US equities.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("database close failed", "error", err)
		}
	}()

	if err := dbManager.RunMigrations("migrations"); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	// Services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	watchlistService := services.NewWatchlistService(db)
	alertService := services.NewAlertService(db)
	auditService := services.NewAuditService(db)

	// Market data and refresh
	finnhub := market.NewFinnhubClient(
		&http.Client{Timeout: appConfig.QuoteRequestTimeout},
		appConfig.FinnhubBaseURL,
		appConfig.FinnhubAPIKey,
	)
	refresher := dashboard.NewRefresher(finnhub)
	poller := dashboard.NewPoller(2 * appConfig.QuoteRequestTimeout)
	poller.Start()
	defer func() {
		<-poller.Stop().Done()
	}()
	dialogs := dashboard.NewDialogRegistry()

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, appConfig.JWTExpirationDur)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService, alertService, auditService, dialogs)
	alertHandler := handlers.NewAlertHandler(alertService, auditService, dialogs)
	marketHandler := handlers.NewMarketHandler(handlers.MarketHandlerConfig{
		WatchlistFeed:     dashboard.NewWatchlistFeed(watchlistService, refresher),
		AlertFeed:         dashboard.NewAlertFeed(alertService, refresher),
		Searcher:          dashboard.NewSearcher(finnhub, dashboard.NewSearchCache(appConfig.SearchCacheTTL), dashboard.NewDebouncer(appConfig.SearchDebounce)),
		WatchlistService:  watchlistService,
		Poller:            poller,
		WatchlistInterval: appConfig.WatchlistPollInterval,
		AlertInterval:     appConfig.AlertPollInterval,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Dialog-ID, X-Search-Stream")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	watchlist := protected.Group("/watchlist")
	watchlist.GET("", watchlistHandler.GetWatchlist)
	watchlist.POST("", watchlistHandler.AddToWatchlist)
	watchlist.DELETE("", watchlistHandler.ClearWatchlist)
	watchlist.GET("/quotes", marketHandler.GetWatchlistQuotes)
	watchlist.GET("/stream", marketHandler.StreamWatchlist)
	watchlist.GET("/:symbol", watchlistHandler.CheckWatchlist)
	watchlist.DELETE("/:symbol", watchlistHandler.RemoveFromWatchlist)
	watchlist.POST("/:symbol/toggle", watchlistHandler.ToggleWatchlist)
	watchlist.POST("/:symbol/alert", watchlistHandler.CreateAlertFromWatchlist)

	alerts := protected.Group("/alert")
	alerts.GET("", alertHandler.GetAlerts)
	alerts.POST("", alertHandler.CreateAlert)
	alerts.GET("/quotes", marketHandler.GetAlertQuotes)
	alerts.GET("/stream", marketHandler.StreamAlerts)
	alerts.GET("/:id", alertHandler.GetAlert)
	alerts.PUT("/:id", alertHandler.UpdateAlert)
	alerts.DELETE("/:id", alertHandler.DeleteAlert)

	protected.GET("/stocks/search", marketHandler.SearchStocks)

	// Request contexts derive from baseCtx so that open event streams end
	// when the server shuts down.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Stock Tracker server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
