package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"granafacil/internal/ai"
	"granafacil/internal/cache"
	"granafacil/internal/evolution"
	"granafacil/internal/handlers"
	"granafacil/internal/logger"
	"granafacil/internal/middleware"
	"granafacil/internal/models"
	"granafacil/internal/pagination"
	"granafacil/internal/services"
	"granafacil/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Store  *cache.Store
}

// appOptions selects the optional collaborators of the stack; the zero
// value runs without AI and without a WhatsApp gateway, like a bare
// production deployment.
type appOptions struct {
	Extractor  ai.Extractor
	Classifier ai.Classifier
	Sender     evolution.Sender
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Category{},
		&models.Transaction{},
		&models.Bill{},
		&models.Goal{},
		&models.WhatsAppLink{},
		&models.WhatsAppMessage{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	return setupAppWith(t, appOptions{})
}

func setupAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	billService := services.NewBillService(db)
	goalService := services.NewGoalService(db)
	activityService := services.NewActivityService(transactionService, billService, goalService)
	whatsappService := services.NewWhatsAppService(db)
	categorizationService := services.NewCategorizationService(
		opts.Extractor, opts.Classifier, transactionService, categoryService, whatsappService)

	// Cache orchestrator, no settle delay in tests
	store := cache.NewStore(time.Minute)
	orchestrator := cache.NewOrchestrator(store, 0)
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

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, orchestrator)
	categoryHandler := handlers.NewCategoryHandler(categoryService, orchestrator)
	transactionHandler := handlers.NewTransactionHandler(transactionService, orchestrator)
	billHandler := handlers.NewBillHandler(billService, orchestrator)
	goalHandler := handlers.NewGoalHandler(goalService, orchestrator)
	activityHandler := handlers.NewActivityHandler(orchestrator)
	aiHandler := handlers.NewAIHandler(categorizationService, orchestrator)
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappService)
	webhookHandler := handlers.NewWebhookHandler(whatsappService, categorizationService, orchestrator, opts.Sender)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	router.POST("/webhook", webhookHandler.HandleEvolution)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/logout", authHandler.Logout)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/categorize", aiHandler.Recategorize)

	protected.GET("/balance", transactionHandler.GetBalance)
	protected.GET("/reports/monthly", transactionHandler.GetMonthlyReport)
	protected.GET("/activity", activityHandler.GetRecentActivity)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	bills := protected.Group("/bills")
	bills.POST("", billHandler.CreateBill)
	bills.GET("", billHandler.GetUserBills)
	bills.GET("/:id", billHandler.GetBillByID)
	bills.PATCH("/:id", billHandler.UpdateBill)
	bills.DELETE("/:id", billHandler.DeleteBill)
	bills.PATCH("/:id/pay", billHandler.PayBill)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/:id", goalHandler.GetGoalByID)
	goals.PATCH("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contributions", goalHandler.AddContribution)
	goals.DELETE("/:id/contributions/:contribution_id", goalHandler.DeleteContribution)

	protected.POST("/ai/categorize", aiHandler.Categorize)

	whatsapp := protected.Group("/whatsapp")
	whatsapp.GET("/link", whatsappHandler.GetLink)
	whatsapp.POST("/link-code", whatsappHandler.GenerateLinkCode)
	whatsapp.DELETE("/link", whatsappHandler.Unlink)

	return &testApp{DB: db, Router: router, Store: store}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"full_name":"Test User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}
