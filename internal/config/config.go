// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"printful-bridge/internal/model"
)

// Config holds all service configuration.
// Environment determines whether store secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port          string
	Environment   string // "development" or "production"
	LogLevel      string // "debug", "info", "warn", "error"
	PublicBaseURL string

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Optional backends; empty selects the in-memory implementations.
	DatabaseURL string
	RedisAddr   string

	Store StoreConfig
}

// StoreConfig contains the store's Printful and WooCommerce settings.
// In production, this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	PrintfulAPIKey  string `json:"printful_api_key"`
	PrintfulStoreID string `json:"printful_store_id"`

	ContainerProductID int64   `json:"container_product_id"`
	MarkupPct          float64 `json:"markup_pct"`
	MarkupFix          float64 `json:"markup_fix"`
	ShowRetail         bool    `json:"show_retail"`
	AllowedCategoryIDs []int64 `json:"allowed_category_ids,omitempty"`
	Currency           string  `json:"currency"`

	LoginURL     string `json:"login_url"`
	MyDesignsURL string `json:"my_designs_url"`
	CartURL      string `json:"cart_url"`

	WooStoreURL       string `json:"woo_store_url"`
	WooConsumerKey    string `json:"woo_consumer_key"`
	WooConsumerSecret string `json:"woo_consumer_secret"`
	WooWebhookSecret  string `json:"woo_webhook_secret"`

	// ShopperSecret signs PF-Shopper headers; empty accepts unsigned identities
	// and is rejected in production.
	ShopperSecret string `json:"shopper_secret"`
	AdminToken    string `json:"admin_token"`

	PackingSlip     PackingSlip `json:"packing_slip"`
	RetryAlertAfter int         `json:"retry_alert_after"`
}

// PackingSlip is attached to every submitted Printful order that has an email.
type PackingSlip struct {
	Email   string `json:"email"`
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:          envOrDefault("PORT", "8080"),
		Environment:   envOrDefault("ENVIRONMENT", "development"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		GCPProject:    os.Getenv("GCP_PROJECT"),
		StoreID:       envOrDefault("STORE_ID", "printful-bridge"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
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
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port          string      `json:"port"`
		Environment   string      `json:"environment"`
		LogLevel      string      `json:"log_level"`
		PublicBaseURL string      `json:"public_base_url"`
		StoreID       string      `json:"store_id"`
		DatabaseURL   string      `json:"database_url"`
		RedisAddr     string      `json:"redis_addr"`
		Store         StoreConfig `json:"store"`
	}
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:          withDefault(fileConfig.Port, "8080"),
		Environment:   withDefault(fileConfig.Environment, "development"),
		LogLevel:      withDefault(fileConfig.LogLevel, "info"),
		PublicBaseURL: fileConfig.PublicBaseURL,
		StoreID:       withDefault(fileConfig.StoreID, "printful-bridge"),
		DatabaseURL:   fileConfig.DatabaseURL,
		RedisAddr:     fileConfig.RedisAddr,
		Store:         fileConfig.Store,
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
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
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		PrintfulAPIKey:    os.Getenv("PRINTFUL_API_KEY"),
		PrintfulStoreID:   os.Getenv("PRINTFUL_STORE_ID"),
		Currency:          os.Getenv("STORE_CURRENCY"),
		LoginURL:          os.Getenv("LOGIN_URL"),
		MyDesignsURL:      os.Getenv("MY_DESIGNS_URL"),
		CartURL:           os.Getenv("CART_URL"),
		WooStoreURL:       os.Getenv("WOO_STORE_URL"),
		WooConsumerKey:    os.Getenv("WOO_CONSUMER_KEY"),
		WooConsumerSecret: os.Getenv("WOO_CONSUMER_SECRET"),
		WooWebhookSecret:  os.Getenv("WOO_WEBHOOK_SECRET"),
		ShopperSecret:     os.Getenv("SHOPPER_SECRET"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		PackingSlip: PackingSlip{
			Email:   os.Getenv("PACKING_SLIP_EMAIL"),
			Message: os.Getenv("PACKING_SLIP_MESSAGE"),
			Phone:   os.Getenv("PACKING_SLIP_PHONE"),
		},
	}

	var err error
	if c.Store.ContainerProductID, err = envInt("CONTAINER_PRODUCT_ID"); err != nil {
		return err
	}
	if c.Store.MarkupPct, err = envFloat("MARKUP_PCT"); err != nil {
		return err
	}
	if c.Store.MarkupFix, err = envFloat("MARKUP_FIX"); err != nil {
		return err
	}
	retryAfter, err := envInt("RETRY_ALERT_AFTER")
	if err != nil {
		return err
	}
	c.Store.RetryAlertAfter = int(retryAfter)

	if raw := os.Getenv("SHOW_RETAIL"); raw != "" {
		if c.Store.ShowRetail, err = strconv.ParseBool(raw); err != nil {
			return fmt.Errorf("parsing SHOW_RETAIL: %w", err)
		}
	}

	if raw := os.Getenv("ALLOWED_CATEGORY_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing ALLOWED_CATEGORY_IDS: %w", err)
			}
			c.Store.AllowedCategoryIDs = append(c.Store.AllowedCategoryIDs, id)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.Currency == "" {
		c.Store.Currency = "AUD"
	}
	c.Store.Currency = strings.ToUpper(c.Store.Currency)
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = fmt.Sprintf("http://localhost:%s", c.Port)
	}
	c.PublicBaseURL = strings.TrimSuffix(c.PublicBaseURL, "/")
}

// validate checks that all required configuration fields are present.
// The container product is checked lazily by cart operations.
func (c *Config) validate() error {
	if c.Store.PrintfulAPIKey == "" {
		return fmt.Errorf("printful_api_key is required")
	}
	if c.Store.PrintfulStoreID == "" {
		return fmt.Errorf("printful_store_id is required")
	}
	if c.Environment == "production" && c.Store.ShopperSecret == "" {
		return fmt.Errorf("shopper_secret is required in production")
	}
	if c.Store.MarkupPct < 0 || c.Store.MarkupFix < 0 {
		return fmt.Errorf("markup must not be negative")
	}
	if c.Store.WooStoreURL != "" {
		if _, err := url.Parse(c.Store.WooStoreURL); err != nil {
			return fmt.Errorf("invalid woo_store_url: %w", err)
		}
		if c.Store.WooConsumerKey == "" || c.Store.WooConsumerSecret == "" {
			return fmt.Errorf("woo_consumer_key and woo_consumer_secret are required with woo_store_url")
		}
	}
	return nil
}

// WebhookURL is the public address Printful posts events to.
func (c *Config) WebhookURL() string {
	return c.PublicBaseURL + "/webhooks/printful"
}

// RequireContainer reports the config error cart operations surface when no
// container product is set.
func (c *Config) RequireContainer() error {
	if c.Store.ContainerProductID <= 0 {
		return model.NewConfigError("Container product not configured")
	}
	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}
