package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tutorcenter_backoffice/internal/handlers"
	authMiddleware "tutorcenter_backoffice/internal/middleware"
	"tutorcenter_backoffice/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (optional; dashboard falls back to direct queries)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, dashboard caching disabled")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = handlers.NewCustomValidator()
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	// Services
	obligationService := services.NewObligationService(db)
	financeService := services.NewFinanceService(db)

	// Handlers
	studentHandler := handlers.NewStudentHandler(db)
	referenceHandler := handlers.NewReferenceHandler(db)
	groupHandler := handlers.NewGroupHandler(db, cache, obligationService)
	transactionHandler := handlers.NewTransactionHandler(db, cache, obligationService)
	obligationHandler := handlers.NewObligationHandler(db, cache, obligationService)
	dashboardHandler := handlers.NewDashboardHandler(financeService, cache)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth(jwtSecret))

	// Students
	api.GET("/students", studentHandler.ListStudents)
	api.POST("/students", studentHandler.CreateStudent)
	api.GET("/students/:id", studentHandler.GetStudent)
	api.PUT("/students/:id", studentHandler.UpdateStudent)
	api.DELETE("/students/:id", studentHandler.DeleteStudent)

	// Reference data
	api.GET("/fees", referenceHandler.ListFees)
	api.POST("/fees", referenceHandler.CreateFee)
	api.GET("/academic-years", referenceHandler.ListAcademicYears)
	api.POST("/academic-years", referenceHandler.CreateAcademicYear)

	// Groups and enrollment
	api.GET("/groups", groupHandler.ListGroups)
	api.POST("/groups", groupHandler.CreateGroup)
	api.GET("/groups/:id", groupHandler.GetGroup)
	api.POST("/groups/:id/members", groupHandler.AddMember)
	api.DELETE("/groups/:id/members/:studentId", groupHandler.RemoveMember)

	// Payment transactions
	api.GET("/transactions", transactionHandler.ListTransactions)
	api.POST("/transactions", transactionHandler.CreateTransaction)
	api.PUT("/transactions/:id", transactionHandler.UpdateTransaction)
	api.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	// Obligations
	api.GET("/obligations", obligationHandler.ListObligations)
	api.POST("/obligations/generate", obligationHandler.Generate)
	api.POST("/obligations/generate-group/:groupId", obligationHandler.GenerateForGroup)
	api.POST("/obligations/recalculate", obligationHandler.Recalculate)
	api.DELETE("/obligations/:id", obligationHandler.DeleteObligation)

	// Dashboard
	api.GET("/dashboard/finance", dashboardHandler.FinanceSummary)
	api.GET("/dashboard/finance/range", dashboardHandler.FinanceSummaryRange)

	// Ops
	api.POST("/admin/sweep", obligationHandler.SweepNow)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
