package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/admin"
	"github.com/campusshelf/campusshelf/internal/auth"
	"github.com/campusshelf/campusshelf/internal/cache"
	"github.com/campusshelf/campusshelf/internal/config"
	"github.com/campusshelf/campusshelf/internal/db"
	"github.com/campusshelf/campusshelf/internal/inbox"
	"github.com/campusshelf/campusshelf/internal/listing"
	appmw "github.com/campusshelf/campusshelf/internal/middleware"
	"github.com/campusshelf/campusshelf/internal/notify"
	"github.com/campusshelf/campusshelf/internal/purchase"
	"github.com/campusshelf/campusshelf/internal/trust"
	"github.com/campusshelf/campusshelf/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if os.Getenv("JWT_SECRET") == "" {
		_ = os.Setenv("JWT_SECRET", cfg.JWTSecret)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db.Init(ctx, cfg, logger)
	defer db.Close()

	cacheClient := cache.New(cfg.RedisAddr, logger)
	defer cacheClient.Close()

	fcm := notify.NewFCM(ctx, cfg.FirebaseCredentialsFile, logger)

	// Notification plumbing: the inbox service is both the durable channel
	// and the push preference policy.
	inboxSvc := inbox.NewService(inbox.NewPGStore(db.Conn), logger)
	tokens := user.TokenStore{Pool: db.Conn}
	dispatcher := notify.NewDispatcher(inboxSvc, tokens, inboxSvc, fcm, cfg.NotifyTimeout, logger)

	queue := notify.NewQueue(cfg.RedisAddr, logger)
	dispatcher.SetQueue(queue.Client())
	queue.Start(dispatcher)
	defer queue.Close()

	trustSvc := trust.NewService(trust.NewPGStore(db.Conn), cacheClient, dispatcher, cfg.ReputationCacheTTL, logger)
	purchaseSvc := purchase.NewService(purchase.NewPGStore(db.Conn), trustSvc, dispatcher, logger)

	trustHandler := trust.NewHandler(trustSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	listingHandler := listing.NewHandler(db.Conn, trustSvc, dispatcher, logger)
	inboxHandler := inbox.NewHandler(inboxSvc)
	announcements := &admin.Announcements{Inbox: inboxSvc}
	passwordReset := &auth.PasswordReset{Notifier: dispatcher}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public auth routes
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.POST("/auth/password/request", passwordReset.Request)
	e.POST("/auth/password/reset", passwordReset.Reset)
	e.POST("/auth/admin/bootstrap", auth.BootstrapAdmin)
	e.GET("/user/:id/profile", user.GetPublicProfile)
	e.GET("/marketplace/sellers/:id/reputation", trustHandler.SellerReputation) // public discovery

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	// Me and profile
	g.GET("/me", auth.Me)
	g.PATCH("/user/profile", user.UpdateProfile)
	g.PUT("/user/device-token", user.RegisterDeviceToken)

	// Marketplace listings
	g.POST("/marketplace/listings", listingHandler.Create)
	g.GET("/marketplace/listings", listingHandler.Browse)
	g.GET("/marketplace/listings/mine", listingHandler.Mine)
	g.GET("/marketplace/listings/:id", listingHandler.Get)
	g.PATCH("/marketplace/listings/:id/status", listingHandler.SetStatus)
	g.DELETE("/marketplace/listings/:id", listingHandler.Delete)

	// Purchase requests
	g.POST("/marketplace/listings/:id/requests", purchaseHandler.Create)
	g.GET("/marketplace/listings/:id/requests", purchaseHandler.ForListing)
	g.GET("/marketplace/listings/:id/requests/status", purchaseHandler.Status)
	g.GET("/marketplace/requests/mine", purchaseHandler.Mine)
	g.GET("/marketplace/requests/incoming", purchaseHandler.Incoming)
	g.PATCH("/marketplace/requests/:id/respond", purchaseHandler.Respond)
	g.POST("/marketplace/requests/:id/cancel", purchaseHandler.Cancel)
	g.DELETE("/marketplace/requests/:id", purchaseHandler.Delete)
	g.POST("/marketplace/requests/delete-many", purchaseHandler.DeleteMany)

	// Trust
	g.POST("/trust/blocks", trustHandler.BlockUser)
	g.DELETE("/trust/blocks/:userId", trustHandler.UnblockUser)
	g.GET("/trust/blocks", trustHandler.ListBlocked)
	g.POST("/trust/ratings", trustHandler.RateSeller)
	g.POST("/trust/reports", trustHandler.CreateReport)
	g.GET("/trust/reports/mine", trustHandler.MyReports)

	// Notifications
	g.GET("/notifications", inboxHandler.List)
	g.GET("/notifications/unread-count", inboxHandler.UnreadCount)
	g.GET("/notifications/preferences", inboxHandler.Preferences)
	g.PUT("/notifications/preferences", inboxHandler.UpdatePreferences)
	g.PATCH("/notifications/:id/read", inboxHandler.MarkRead)
	g.POST("/notifications/mark-all-read", inboxHandler.MarkAllRead)
	g.DELETE("/notifications/:id", inboxHandler.Delete)

	// Campus notices, restricted to staff roles
	g.POST("/notices", announcements.PublishNotice, appmw.RequireRoles("teacher", "admin"))

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/trust-stats", trustHandler.TrustStats)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/users/:id/role", admin.SetUserRole)
	adminGroup.GET("/reports", trustHandler.ModerationReports)
	adminGroup.PATCH("/reports/:id", trustHandler.ReviewReport)
	adminGroup.POST("/announcements", announcements.Create)

	logger.Info("API server listening", zap.String("port", cfg.Port))
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
