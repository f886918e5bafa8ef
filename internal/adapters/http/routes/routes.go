package routes

import (
	"hostelpass/internal/adapters/http/handlers"
	"hostelpass/internal/adapters/http/middleware"
	"hostelpass/internal/adapters/persistence/repositories"
	"hostelpass/internal/config"
	"hostelpass/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	leaveRepo := repositories.NewLeaveRepository(db)
	scanEventRepo := repositories.NewScanEventRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	leaveService := services.NewLeaveService(leaveRepo, userRepo)
	scanService := services.NewScanService(leaveRepo, scanEventRepo)
	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	leaveHandler := handlers.NewLeaveHandler(leaveService)
	scanHandler := handlers.NewScanHandler(scanService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, userHandler,
		leaveHandler, scanHandler, dashboardHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	leaveHandler *handlers.LeaveHandler,
	scanHandler *handlers.ScanHandler,
	dashboardHandler *handlers.DashboardHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Leave request routes (Authenticated)
	leaveRoutes := router.Group("/leaves")
	leaveRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLeaveRoutes(leaveRoutes, leaveHandler)

	// Gate scan routes (Guard only)
	scanRoutes := router.Group("/scans")
	scanRoutes.Use(middleware.AuthMiddleware(cfg))
	scanRoutes.Use(middleware.GuardOnly())
	setupScanRoutes(scanRoutes, scanHandler)

	// Profile routes (Authenticated users)
	profileRoutes := router.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProfileRoutes(profileRoutes, userHandler)

	// Dashboard route (Authenticated users)
	dashboardRoutes := router.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Get("/", dashboardHandler.Dashboard)

	// Admin routes (Admin only)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, userHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited against brute force
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupLeaveRoutes configures leave request routes. Role checks beyond
// authentication live in the service layer, which scopes visibility and
// decisions to the caller's role.
func setupLeaveRoutes(router fiber.Router, handler *handlers.LeaveHandler) {
	router.Post("/", middleware.StudentOnly(), handler.Create)
	router.Get("/", handler.List)
	router.Get("/:id", middleware.NoCacheHeaders(), handler.Get)
	router.Post("/:id/decisions/:stage", middleware.ApproverOnly(), handler.Decide)
}

// setupScanRoutes configures gate scan routes (Guard only)
func setupScanRoutes(router fiber.Router, handler *handlers.ScanHandler) {
	router.Post("/", middleware.ScanRateLimiter(), handler.Scan)
	router.Get("/history", handler.History)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Patch("/", handler.UpdateProfile)
	router.Put("/password", handler.ChangePassword)
}

// setupAdminRoutes configures admin user management routes
func setupAdminRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/users", handler.ListUsers)
	router.Get("/users/:id", handler.GetUser)
	router.Patch("/users/:id", handler.UpdateUser)
	router.Put("/users/:id/advisor", handler.AssignAdvisor)
}
