package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"investment-platform/internal/auth"
	"investment-platform/internal/config"
	"investment-platform/internal/database"
	"investment-platform/internal/handlers"
	"investment-platform/internal/jobs"
	"investment-platform/internal/middleware"
	"investment-platform/internal/pix"
	"investment-platform/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize payment provider client
	provider := pix.NewClient(cfg.Pix.ProviderBaseURL, cfg.Pix.APIKey)

	// Initialize services
	ledgerService := services.NewLedgerService(db)
	referralService := services.NewReferralService(db, ledgerService, cfg.Referral)
	authService := services.NewAuthService(db, referralService)
	userService := services.NewUserService(db)
	traderService := services.NewTraderService(db)
	investmentService := services.NewInvestmentService(db, ledgerService, referralService, services.NewSimulatedRateSource())
	pixService := services.NewPixService(db, ledgerService, referralService, provider, cfg.Pix)

	// Initialize handlers
	handlers.RegisterValidations()
	authHandler := handlers.NewAuthHandler(authService, userService)
	traderHandler := handlers.NewTraderHandler(traderService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	transactionHandler := handlers.NewTransactionHandler(pixService)
	referralHandler := handlers.NewReferralHandler(referralService)
	webhookHandler := handlers.NewWebhookHandler(pixService, cfg.Pix.APIKey)
	adminHandler := handlers.NewAdminHandler(db, userService)

	// Start background jobs
	settlementJob := jobs.NewSettlementJob(investmentService, 1*time.Hour)
	go settlementJob.Start()

	paymentCheckJob := jobs.NewPaymentCheckJob(pixService, 1*time.Minute)
	go paymentCheckJob.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public trader catalog
	router.GET("/api/traders", traderHandler.GetTraders)
	router.GET("/api/traders/:id", traderHandler.GetTrader)

	// Provider webhook (authenticated by API key, not JWT)
	router.POST("/webhooks/pix", webhookHandler.HandlePaymentWebhook)

	// Rate limiter for mutating authenticated routes
	limiterStore := middleware.NewMemoryStore(cfg.App.RateLimitRPS, cfg.App.RateLimitBurst)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	api.Use(middleware.UserRateLimit(limiterStore))
	{
		// Investment endpoints
		api.POST("/investments", investmentHandler.CreateInvestment)
		api.GET("/investments", investmentHandler.GetInvestments)
		api.GET("/investments/:id", investmentHandler.GetInvestment)
		api.POST("/investments/:id/cancel", investmentHandler.CancelInvestment)

		// Transaction endpoints
		api.GET("/transactions", transactionHandler.GetTransactions)
		api.POST("/transactions/deposit", transactionHandler.CreateDeposit)
		api.POST("/transactions/withdraw", transactionHandler.CreateWithdrawal)
		api.POST("/transactions/:reference/cancel", transactionHandler.CancelTransaction)

		// Referral endpoints
		api.GET("/referral/code", referralHandler.GetReferralCode)
		api.POST("/referral/apply", referralHandler.ApplyReferralCode)
		api.GET("/referral/stats", referralHandler.GetReferralStats)
		api.GET("/referral/referrals", referralHandler.GetReferrals)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		admin.GET("/stats", adminHandler.GetPlatformStats)
		admin.GET("/users", adminHandler.GetUsers)
		admin.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
		admin.GET("/withdrawals", adminHandler.GetWithdrawals)
		admin.POST("/traders", traderHandler.CreateTrader)
		admin.PUT("/traders/:id", traderHandler.UpdateTrader)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	settlementJob.Stop()
	paymentCheckJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
