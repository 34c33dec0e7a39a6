// Package config handles loading and validation of engine configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"cart-engine/internal/model"
	"cart-engine/internal/storefront"
)

// Config holds all engine configuration.
// Environment determines whether store settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings (cartagent only)
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Store-specific configuration (loaded from secrets in production)
	Store StoreConfig
}

// StoreConfig contains the per-store settings the controllers consume: the
// origin, the route table, localized cart strings, and optional quantity
// price breaks. In production this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	StoreURL   string            `json:"store_url"`
	Routes     storefront.Routes `json:"routes"`
	Strings    CartStrings       `json:"cart_strings"`
	PriceTiers []model.PriceTier `json:"price_tiers,omitempty"`

	// SectionsURL is the page path sent with mutation requests so the
	// server renders sections in the right context. Defaults to "/cart".
	SectionsURL string `json:"sections_url,omitempty"`
}

// CartStrings is the localized copy the cart controllers surface.
// QuantityError carries a [quantity] placeholder substituted at display time.
type CartStrings struct {
	Error         string `json:"error"`
	QuantityError string `json:"quantity_error"`
}

func defaultStrings() CartStrings {
	return CartStrings{
		Error:         "There was an error while updating your cart. Please try again.",
		QuantityError: "You can only add [quantity] of this item to your cart.",
	}
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string      `json:"port"`
		Environment string      `json:"environment"`
		LogLevel    string      `json:"log_level"`
		StoreID     string      `json:"store_id"`
		Store       StoreConfig `json:"store"`
	}
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		StoreID:     fileConfig.StoreID,
		Store:       fileConfig.Store,
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads store config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Store.StoreURL = os.Getenv("STORE_URL")
	c.Store.SectionsURL = os.Getenv("SECTIONS_URL")

	if routesJSON := os.Getenv("CART_ROUTES"); routesJSON != "" {
		if err := json.Unmarshal([]byte(routesJSON), &c.Store.Routes); err != nil {
			return fmt.Errorf("parsing CART_ROUTES JSON: %w", err)
		}
	}
	if stringsJSON := os.Getenv("CART_STRINGS"); stringsJSON != "" {
		if err := json.Unmarshal([]byte(stringsJSON), &c.Store.Strings); err != nil {
			return fmt.Errorf("parsing CART_STRINGS JSON: %w", err)
		}
	}
	if tiersJSON := os.Getenv("PRICE_TIERS"); tiersJSON != "" {
		if err := json.Unmarshal([]byte(tiersJSON), &c.Store.PriceTiers); err != nil {
			return fmt.Errorf("parsing PRICE_TIERS JSON: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.Strings.Error == "" {
		c.Store.Strings.Error = defaultStrings().Error
	}
	if c.Store.Strings.QuantityError == "" {
		c.Store.Strings.QuantityError = defaultStrings().QuantityError
	}
	if c.Store.SectionsURL == "" {
		c.Store.SectionsURL = "/cart"
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	u, err := url.Parse(c.Store.StoreURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid store_url %q", c.Store.StoreURL)
	}

	for _, tier := range c.Store.PriceTiers {
		if tier.Quantity < 1 {
			return fmt.Errorf("price tier threshold must be at least 1, got %d", tier.Quantity)
		}
		if tier.Price < 0 {
			return fmt.Errorf("price tier price must not be negative, got %v", tier.Price)
		}
	}
	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
