// Package showroom is a motorcycle-dealership storefront built with Go and
// Echo. The storefront and admin console are thin JSON surfaces over the
// catalog package, which owns the quota-aware persistent catalog store and
// the image compression pipeline.
package showroom

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/showroom/catalog"
)

// App is the central showroom application. It wires together the store, the
// catalog repository, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *catalog.KVStore
	Catalog *catalog.Repository

	log          *slog.Logger
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new showroom App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		log:       slog.Default(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the store, catalog, middleware and routes, then starts
// the server.
func (a *App) Start() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("showroom: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("showroom: SessionSecret is required")
	}

	store, err := catalog.OpenKV(a.Config.DatabasePath, a.Config.StoreCeiling)
	if err != nil {
		return fmt.Errorf("showroom: open store: %w", err)
	}
	a.Store = store

	repo, err := catalog.NewRepository(store, a.Config.StorageCapacity, a.log,
		catalog.WithMaxImagesPerItem(a.Config.MaxImagesPerItem),
		catalog.WithImageBudget(a.Config.ImageBudget),
		catalog.WithMaxCovers(a.Config.MaxCovers),
	)
	if err != nil {
		return fmt.Errorf("showroom: init catalog: %w", err)
	}
	a.Catalog = repo

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Static frontend owns all page rendering; the server only speaks JSON.
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Storefront API
	e.GET("/api/items", a.handleListItems)
	e.GET("/api/items/:id", a.handleGetItem)
	e.GET("/api/covers", a.handleListCovers)
	e.GET("/api/storage", a.handleStorageInfo)

	// Admin session
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	// Admin catalog API
	e.POST("/api/admin/items", a.handleAdminCreateItem)
	e.PUT("/api/admin/items/:id", a.handleAdminUpdateItem)
	e.DELETE("/api/admin/items/:id", a.handleAdminDeleteItem)
	e.GET("/api/admin/items/:id/original", a.handleAdminOriginal)
	e.POST("/api/admin/items/:id/images/reorder", a.handleAdminReorderImages)
	e.POST("/api/admin/items/:id/images/reverse", a.handleAdminReverseImages)
	e.POST("/api/admin/items/:id/images/shuffle", a.handleAdminShuffleImages)
	e.POST("/api/admin/covers", a.handleAdminAddCover)
	e.DELETE("/api/admin/covers/:index", a.handleAdminRemoveCover)
	e.POST("/api/admin/evict", a.handleAdminEvict)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("showroom: required environment variable %s is not set", key)
	}
	return v
}
