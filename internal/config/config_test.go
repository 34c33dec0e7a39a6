package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_URL", "https://shop.example.com")
	t.Setenv("PRICE_TIERS", `[{"quantity":5,"price":9},{"quantity":10,"price":8}]`)
	t.Setenv("CART_STRINGS", `{"error":"Oups","quantity_error":"Max [quantity]"}`)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.StoreURL != "https://shop.example.com" {
		t.Errorf("StoreURL = %q", cfg.Store.StoreURL)
	}
	if len(cfg.Store.PriceTiers) != 2 || cfg.Store.PriceTiers[1].Price != 8 {
		t.Errorf("PriceTiers = %+v", cfg.Store.PriceTiers)
	}
	if cfg.Store.Strings.Error != "Oups" {
		t.Errorf("Strings.Error = %q", cfg.Store.Strings.Error)
	}
	if cfg.Store.SectionsURL != "/cart" {
		t.Errorf("SectionsURL default = %q, want /cart", cfg.Store.SectionsURL)
	}
}

func TestLoadDefaultsStrings(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_URL", "https://shop.example.com")
	t.Setenv("CART_STRINGS", "")
	t.Setenv("PRICE_TIERS", "")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Strings.Error == "" || cfg.Store.Strings.QuantityError == "" {
		t.Errorf("default strings missing: %+v", cfg.Store.Strings)
	}
}

func TestLoadRequiresStoreURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_URL", "")

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error when STORE_URL is missing")
	}
}

func TestLoadProductionRequiresProject(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GCP_PROJECT", "")
	t.Setenv("STORE_ID", "my-store")

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error when GCP_PROJECT missing in production")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"environment": "development",
		"store_id": "widget-shop",
		"store": {
			"store_url": "https://widgets.example.com",
			"routes": {"cart_change_url": "/custom/change.js"},
			"price_tiers": [{"quantity": 5, "price": 9.5}]
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreID != "widget-shop" {
		t.Errorf("StoreID = %q", cfg.StoreID)
	}
	if cfg.Store.Routes.CartChangeURL != "/custom/change.js" {
		t.Errorf("CartChangeURL = %q", cfg.Store.Routes.CartChangeURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port default = %q, want 8080", cfg.Port)
	}
}

func TestValidateRejectsBadTier(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_URL", "https://shop.example.com")
	t.Setenv("PRICE_TIERS", `[{"quantity":0,"price":9}]`)

	if _, err := Load(context.Background()); err == nil {
		t.Error("expected error for zero tier threshold")
	}
}
