package showroom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eringen/showroom/catalog"
)

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()

	if cfg.Name != "Showroom" {
		t.Errorf("Name = %q, want Showroom", cfg.Name)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.StorageCapacity != 5<<20 {
		t.Errorf("StorageCapacity = %d, want %d", cfg.StorageCapacity, 5<<20)
	}
	if cfg.MaxImagesPerItem != catalog.DefaultMaxImagesPerItem {
		t.Errorf("MaxImagesPerItem = %d, want %d", cfg.MaxImagesPerItem, catalog.DefaultMaxImagesPerItem)
	}
	if cfg.ImageBudget != catalog.DefaultImageBudget {
		t.Errorf("ImageBudget = %d, want %d", cfg.ImageBudget, catalog.DefaultImageBudget)
	}

	// Existing values survive.
	cfg = SiteConfig{Name: "Moto City", Addr: ":8080"}
	cfg.setDefaults()
	if cfg.Name != "Moto City" || cfg.Addr != ":8080" {
		t.Errorf("setDefaults overwrote explicit values: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.toml")
	data := `
name = "Moto City"
url = "https://motocity.example"
addr = ":8080"
storage_capacity = 1048576
store_ceiling = 2097152
cookie_secure = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "Moto City" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.URL != "https://motocity.example" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.StorageCapacity != 1<<20 {
		t.Errorf("StorageCapacity = %d", cfg.StorageCapacity)
	}
	if cfg.StoreCeiling != 2<<20 {
		t.Errorf("StoreCeiling = %d", cfg.StoreCeiling)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure = false, want true")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != (SiteConfig{}) {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("name = [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}
