package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"cashflow/internal/config"
	"cashflow/internal/database"
	"cashflow/internal/feed"
	"cashflow/internal/handlers"
	"cashflow/internal/logger"
	"cashflow/internal/middleware"
	"cashflow/internal/repository"
	"cashflow/internal/services"
	"cashflow/internal/validator"

	_ "cashflow/internal/docs" // Import swagger docs
)

// @title           CashFlow API
// @version         1.0
// @description     CashFlow tracks personal income and expenses, with recurring expense templates, CSV/JSON import and export, and live transaction updates.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	// Transactions and recurring expenses live in the document store when
	// the mongo backend is selected; users, preferences and audit logs stay SQL.
	store := repository.NewGormStore(db)
	if appConfig.StorageBackend == config.BackendMongo {
		store, err = repository.ConnectMongo(ctx, appConfig.MongoURI, appConfig.MongoDatabase)
		if err != nil {
			return fmt.Errorf("failed to connect to document store: %w", err)
		}
		defer store.Close(context.Background())
	}

	g, gctx := errgroup.WithContext(ctx)

	// Change notifications fan out through AMQP when configured so every
	// replica's subscribers see writes made elsewhere.
	hub := feed.NewHub(store.Transactions)
	var notifier feed.Notifier = hub
	if appConfig.AMQPURL != "" {
		broker, err := feed.NewBroker(appConfig.AMQPURL, appConfig.AMQPExchange, hub)
		if err != nil {
			return fmt.Errorf("failed to connect to message broker: %w", err)
		}
		defer broker.Close()
		notifier = broker
		g.Go(func() error { return broker.Run(gctx) })
	}

	// Initialize services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	preferenceService := services.NewPreferenceService(db)
	transactionService := services.NewTransactionService(store.Transactions, hub, notifier)
	recurringService := services.NewRecurringExpenseService(store.RecurringExpenses, transactionService)
	reportService := services.NewReportService(transactionService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService, hub, appConfig.ImportMaxBytes)
	recurringHandler := handlers.NewRecurringExpenseHandler(recurringService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)
	functionHandler := handlers.NewFunctionHandler(transactionService)

	validator.Register()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Standalone endpoints answer every method themselves
	router.Any("/getUserTransactions", functionHandler.GetUserTransactions)
	router.Any("/healthCheck", functionHandler.HealthCheck)

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/stream", transactionHandler.StreamTransactions)
	transactions.GET("/export", transactionHandler.ExportTransactions)
	transactions.POST("/import", transactionHandler.ImportTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Recurring expense routes
	recurring := protected.Group("/recurring-expenses")
	recurring.POST("", recurringHandler.CreateRecurringExpense)
	recurring.GET("", recurringHandler.GetUserRecurringExpenses)
	recurring.GET("/:id", recurringHandler.GetRecurringExpenseByID)
	recurring.PUT("/:id", recurringHandler.UpdateRecurringExpense)
	recurring.DELETE("/:id", recurringHandler.DeleteRecurringExpense)
	recurring.POST("/:id/apply", recurringHandler.ApplyRecurringExpense)

	// Report routes
	reports := protected.Group("/reports")
	reports.GET("/summary", reportHandler.GetSummary)
	reports.GET("/presets", reportHandler.GetPresets)

	// Preference routes
	protected.GET("/preferences", preferenceHandler.GetPreference)
	protected.PUT("/preferences", preferenceHandler.UpdatePreference)

	// Audit routes
	protected.GET("/audit-logs", auditHandler.GetAuditLogs)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Infof("Starting CashFlow backend server on port %s (storage: %s)", appConfig.Port, appConfig.StorageBackend)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
