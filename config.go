package showroom

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/eringen/showroom/catalog"
)

// SiteConfig holds all configuration for a showroom site.
type SiteConfig struct {
	Name        string `toml:"name"`        // Dealership name (default "Showroom")
	URL         string `toml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `toml:"description"` // Site description for the feed and meta tags

	Addr         string `toml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `toml:"database_path"` // SQLite path (default "data/showroom.db")

	AdminPassword string `toml:"admin_password"` // Required: admin login password
	SessionSecret string `toml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `toml:"cookie_secure"`  // Set true for HTTPS

	// StorageCapacity is the logical quota for the durable catalog store.
	StorageCapacity int64 `toml:"storage_capacity"`
	// StoreCeiling is the medium-level byte ceiling of the SQLite store
	// itself, enforced independently of the logical quota. 0 disables it.
	StoreCeiling     int64 `toml:"store_ceiling"`
	MaxImagesPerItem int   `toml:"max_images_per_item"`
	ImageBudget      int   `toml:"image_budget"` // per-image byte budget
	MaxCovers        int   `toml:"max_covers"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Showroom"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/showroom.db"
	}
	if c.StorageCapacity == 0 {
		c.StorageCapacity = 5 << 20
	}
	if c.MaxImagesPerItem == 0 {
		c.MaxImagesPerItem = catalog.DefaultMaxImagesPerItem
	}
	if c.ImageBudget == 0 {
		c.ImageBudget = catalog.DefaultImageBudget
	}
	if c.MaxCovers == 0 {
		c.MaxCovers = catalog.DefaultMaxCovers
	}
}

// LoadConfig reads a TOML config file. A missing path returns the zero config
// so env-only deployments keep working; defaults are applied on Start.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for the static frontend (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the structured logger used by the app and the catalog.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.log = log
	}
}
