package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"case_relay_go/config"
	"case_relay_go/db"
	"case_relay_go/handlers"
	"case_relay_go/middleware"
	"case_relay_go/models"
	"case_relay_go/services"
	"case_relay_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:           cfg.DBPath,
		TursoURL:       cfg.TursoDatabaseURL,
		TursoAuthToken: cfg.TursoAuthToken,
		Environment:    cfg.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.CaseComment{},
		&models.CaseDocument{},
		&models.Notification{},
		&models.PasswordResetToken{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.SeedAdmin(db.DB, cfg.AdminSeedPasscode); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	storage := services.NewStorage(cfg)
	services.InitSecurityMonitor()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = cfg.IsProduction()

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestMetrics())

	// Make config and storage available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(handlers.ContextKeyConfig, cfg)
			c.Set(handlers.ContextKeyStorage, storage)
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public auth routes
	auth := e.Group("/api/auth")
	{
		auth.POST("/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/forgot-password", handlers.ForgotPasswordHandler, middleware.PasswordResetRateLimiter.Middleware())
		auth.POST("/reset-password", handlers.ResetPasswordHandler, middleware.PasswordResetRateLimiter.Middleware())
	}

	// Protected routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth(services.TokenConfigFrom(cfg), db.DB))
	api.Use(middleware.AuditContext())
	api.Use(middleware.APIRateLimiter.Middleware())
	admin := middleware.RequireAdmin()
	{
		api.POST("/auth/change-passcode", handlers.ChangePasscodeHandler)
		api.GET("/auth/userinfo", handlers.UserInfoHandler)
		api.PUT("/auth/update-profile", handlers.UpdateProfileHandler)
		api.POST("/auth/unlock/:policeId", handlers.UnlockAccountHandler, admin)

		// Cases
		api.GET("/cases/all", handlers.GetAllCasesHandler)
		api.GET("/cases/user", handlers.GetMyCasesHandler)
		api.GET("/cases/search", handlers.SearchCasesHandler)
		api.GET("/cases/statistics", handlers.CaseStatisticsHandler)
		api.GET("/cases/export", handlers.ExportCasesHandler)
		api.GET("/cases/:caseId", handlers.GetCaseHandler)
		api.GET("/cases/:caseId/extras", handlers.GetCaseExtrasHandler)
		api.GET("/cases/:caseId/report", handlers.CaseReportHandler)
		api.GET("/cases/:caseId/documents/:documentId", handlers.DownloadDocumentHandler)
		api.POST("/cases", handlers.CreateCaseHandler)
		api.PUT("/cases/:caseId", handlers.UpdateCaseHandler)
		api.DELETE("/cases/:caseId", handlers.DeleteCaseHandler)
		api.PATCH("/cases/:caseId/approve", handlers.ApproveCaseHandler, admin)
		api.PATCH("/cases/:caseId/status", handlers.UpdateCaseStatusHandler)
		api.PATCH("/cases/:caseId/assign", handlers.AssignCaseHandler)
		api.POST("/cases/handover/:caseId", handlers.HandoverCaseHandler)
		api.POST("/cases/:caseId/comment", handlers.AddCommentHandler)
		api.POST("/cases/:caseId/document", handlers.UploadDocumentHandler)

		// Users
		api.GET("/user/profile", handlers.GetProfileHandler)
		api.GET("/user/all", handlers.ListUsersHandler)
		api.GET("/user/:userId", handlers.GetUserHandler)
		api.GET("/user/:userId/cases", handlers.GetUserCasesHandler)
		api.PUT("/user/update-profile", handlers.UpdateProfileHandler)
		api.PUT("/user/change-role/:userId", handlers.ChangeRoleHandler, admin)
		api.PUT("/user/promote-to-admin/:userId", handlers.PromoteToAdminHandler, admin)
		api.DELETE("/user/delete/:userId", handlers.DeleteUserHandler, admin)
		api.POST("/user/create", handlers.CreateUserHandler, admin)

		// Notifications
		api.GET("/notification", handlers.GetNotificationsHandler)
		api.PATCH("/notification/read-all", handlers.MarkAllNotificationsReadHandler)
		api.PATCH("/notification/:id/read", handlers.MarkNotificationReadHandler)
		api.DELETE("/notification/:id", handlers.DeleteNotificationHandler)

		// Audit trail and security
		api.GET("/audit-logs", handlers.GetAuditLogsHandler, admin)
		api.GET("/audit-logs/:type/:id", handlers.GetResourceHistoryHandler, admin)
		api.GET("/security/alerts", handlers.SecurityAlertsHandler, admin)
	}

	// Background maintenance: token cleanup, lockout release, stale case reminders
	scheduler := jobs.StartScheduler(db.DB, cfg)

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Let a running maintenance job finish before the database closes
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		log.Println("Maintenance jobs did not finish before shutdown timeout")
	}

	log.Println("Server stopped")
}
