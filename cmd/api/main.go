package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"granafacil/internal/ai"
	"granafacil/internal/cache"
	"granafacil/internal/config"
	"granafacil/internal/database"
	"granafacil/internal/evolution"
	"granafacil/internal/handlers"
	"granafacil/internal/logger"
	"granafacil/internal/middleware"
	"granafacil/internal/pagination"
	"granafacil/internal/services"
	"granafacil/internal/validator"

	_ "granafacil/internal/docs" // Import swagger docs
)

// @title           GranaFácil API
// @version         1.0
// @description     GranaFácil is a personal finance application with WhatsApp-based transaction capture and AI categorization.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	billService := services.NewBillService(db)
	goalService := services.NewGoalService(db)
	activityService := services.NewActivityService(transactionService, billService, goalService)
	whatsappService := services.NewWhatsAppService(db)

	// Gemini-backed extraction and classification
	var extractor ai.Extractor
	var classifier ai.Classifier
	if appConfig.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(context.Background(), appConfig.GeminiAPIKey, appConfig.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		extractor = ai.NewGeminiExtractor(gemini)
		classifier = ai.NewGeminiClassifier(gemini)
	} else {
		log.Warn("GEMINI_API_KEY not set, AI categorization disabled")
	}
	categorizationService := services.NewCategorizationService(extractor, classifier, transactionService, categoryService, whatsappService)

	// WhatsApp gateway
	var sender evolution.Sender
	if appConfig.EvolutionURL != "" {
		sender = evolution.NewClient(appConfig.EvolutionURL, appConfig.EvolutionAPIKey, appConfig.EvolutionInstance, nil)
	} else {
		log.Warn("EVOLUTION_API_URL not set, WhatsApp replies disabled")
	}

	// Cache orchestrator with a fetcher per bucket
	store := cache.NewStore(appConfig.CacheTTL)
	orchestrator := cache.NewOrchestrator(store, appConfig.CacheSettleDelay)
	orchestrator.Register(cache.BucketTransactions, func(ctx context.Context, userID string) (interface{}, error) {
		return transactionService.GetUserTransactions(userID, pagination.PageRequest{}, services.TransactionFilter{})
	})
	orchestrator.Register(cache.BucketBalance, func(ctx context.Context, userID string) (interface{}, error) {
		return transactionService.GetBalanceSummary(userID)
	})
	orchestrator.Register(cache.BucketCategories, func(ctx context.Context, userID string) (interface{}, error) {
		return categoryService.GetUserCategories(userID)
	})
	orchestrator.Register(cache.BucketGoals, func(ctx context.Context, userID string) (interface{}, error) {
		return goalService.GetUserGoals(userID)
	})
	orchestrator.Register(cache.BucketBills, func(ctx context.Context, userID string) (interface{}, error) {
		return billService.GetUserBills(userID, pagination.PageRequest{}, services.BillFilter{})
	})
	orchestrator.Register(cache.BucketMonthlyReport, func(ctx context.Context, userID string) (interface{}, error) {
		return transactionService.GetMonthlyReport(userID)
	})
	orchestrator.Register(cache.BucketActivityLog, func(ctx context.Context, userID string) (interface{}, error) {
		return activityService.GetRecentActivity(userID)
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, orchestrator)
	categoryHandler := handlers.NewCategoryHandler(categoryService, orchestrator)
	transactionHandler := handlers.NewTransactionHandler(transactionService, orchestrator)
	billHandler := handlers.NewBillHandler(billService, orchestrator)
	goalHandler := handlers.NewGoalHandler(goalService, orchestrator)
	activityHandler := handlers.NewActivityHandler(orchestrator)
	aiHandler := handlers.NewAIHandler(categorizationService, orchestrator)
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappService)
	webhookHandler := handlers.NewWebhookHandler(whatsappService, categorizationService, orchestrator, sender)
	deployHandler := handlers.NewDeployHandler(appConfig.DeploySecret, nil)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check and deploy webhook (outside the versioned API)
	router.GET("/health", deployHandler.Health)
	router.POST("/deploy", deployHandler.Deploy)
	router.POST("/webhook", webhookHandler.HandleEvolution)

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile and logout
	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/logout", authHandler.Logout)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/categorize", aiHandler.Recategorize)

	// Derived financial views
	protected.GET("/balance", transactionHandler.GetBalance)
	protected.GET("/reports/monthly", transactionHandler.GetMonthlyReport)
	protected.GET("/activity", activityHandler.GetRecentActivity)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Bill routes
	bills := protected.Group("/bills")
	bills.POST("", billHandler.CreateBill)
	bills.GET("", billHandler.GetUserBills)
	bills.GET("/:id", billHandler.GetBillByID)
	bills.PATCH("/:id", billHandler.UpdateBill)
	bills.DELETE("/:id", billHandler.DeleteBill)
	bills.PATCH("/:id/pay", billHandler.PayBill)

	// Goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/:id", goalHandler.GetGoalByID)
	goals.PATCH("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contributions", goalHandler.AddContribution)
	goals.DELETE("/:id/contributions/:contribution_id", goalHandler.DeleteContribution)

	// AI routes
	protected.POST("/ai/categorize", aiHandler.Categorize)

	// WhatsApp link routes
	whatsapp := protected.Group("/whatsapp")
	whatsapp.GET("/link", whatsappHandler.GetLink)
	whatsapp.POST("/link-code", whatsappHandler.GenerateLinkCode)
	whatsapp.DELETE("/link", whatsappHandler.Unlink)

	log.Infof("Starting GranaFácil backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
