// Command showroom runs the dealership storefront server.
// Configuration comes from an optional TOML file (SHOWROOM_CONFIG) with
// environment variables taking precedence; a local .env file is honored.
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/eringen/showroom"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	cfg, err := showroom.LoadConfig(os.Getenv("SHOWROOM_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	cfg.Name = showroom.EnvOr("SITE_NAME", cfg.Name)
	cfg.URL = showroom.EnvOr("SITE_URL", cfg.URL)
	cfg.Description = showroom.EnvOr("SITE_DESCRIPTION", cfg.Description)
	cfg.Addr = showroom.EnvOr("LISTEN_ADDR", cfg.Addr)
	cfg.DatabasePath = showroom.EnvOr("DATABASE_PATH", cfg.DatabasePath)
	if v := os.Getenv("STORAGE_CAPACITY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.StorageCapacity = n
		}
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		cfg.CookieSecure = v == "true"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = showroom.MustEnv("ADMIN_PASSWORD")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = showroom.MustEnv("ADMIN_SESSION_SECRET")
	}

	app := showroom.New(cfg, showroom.WithLogger(logger))
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
