package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/artisanconnect/backend/internal/alerts"
	"github.com/artisanconnect/backend/internal/auth"
	"github.com/artisanconnect/backend/internal/bidding"
	"github.com/artisanconnect/backend/internal/catalog"
	"github.com/artisanconnect/backend/internal/db"
	"github.com/artisanconnect/backend/internal/lifecycle"
	"github.com/artisanconnect/backend/internal/marketplace"
	appmw "github.com/artisanconnect/backend/internal/middleware"
	"github.com/artisanconnect/backend/internal/rating"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	store := catalog.NewPostgresStore(pool)
	ratings := rating.NewAggregator(store)
	controller := lifecycle.NewController(store, ratings)
	bids := bidding.NewEngine(store)

	// Notifications are best-effort; the engine runs without them.
	var notifier *alerts.Client
	var worker *alerts.Server
	if os.Getenv("REDIS_ADDR") != "" || os.Getenv("REDIS_HOST") != "" {
		notifier = alerts.NewClient()
		worker = alerts.NewServer()
		defer func() {
			_ = notifier.Close()
			worker.Shutdown()
		}()
	}

	market := marketplace.NewHandlers(store, controller, bids, ratings, notifier)
	authH := auth.NewHandlers(store, notifier)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ready", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes with per-IP rate limiting on auth
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)

	e.GET("/marketplace/jobs", market.ListJobs)
	e.GET("/marketplace/jobs/:id", market.GetJob)
	e.GET("/artisans/:id/rating", market.GetArtisanRating)

	// Authenticated routes
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	g.GET("/auth/me", authH.Me)

	g.POST("/marketplace/jobs", market.CreateJob, appmw.RequireRoles(catalog.RoleOwner))
	g.GET("/marketplace/jobs/:id/bids", market.ListJobBids)
	g.POST("/marketplace/jobs/:id/bids", market.CreateBid, appmw.RequireRoles(catalog.RoleArtisan))
	g.POST("/marketplace/jobs/:id/accept", market.AcceptBid, appmw.RequireRoles(catalog.RoleOwner))
	g.POST("/marketplace/jobs/:id/complete", market.CompleteJob)
	g.POST("/marketplace/jobs/:id/dispute", market.OpenDispute)
	g.GET("/marketplace/jobs/:id/escrow", market.GetEscrow)
	g.GET("/marketplace/bids/me", market.MyBids, appmw.RequireRoles(catalog.RoleArtisan))

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(appmw.JWTMiddleware)
	admin.Use(appmw.AdminGuard)
	admin.POST("/jobs/:id/resolve", market.ResolveDispute)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
