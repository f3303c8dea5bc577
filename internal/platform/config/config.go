package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultDatabasePath        = "lumicab.db"
	defaultMigrationsDir       = "migrations"
	defaultDepotLat            = 48.8666
	defaultDepotLng            = 2.3333
	defaultDepositPercent      = 30
	defaultCRMTimeout          = 10 * time.Second
	defaultWebhookTimeout      = 5 * time.Second
	defaultHMACSignatureHeader = "X-Signature"
	defaultHMACTimestampHeader = "X-Signature-Timestamp"
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Pricing     PricingConfig
	CRM         CRMConfig
	PSP         PSPConfig
	Webhooks    WebhookConfig
	Partner     PartnerConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig locates the SQLite database and its migrations.
type DatabaseConfig struct {
	Path          string
	MigrationsDir string
}

// PricingConfig anchors the distance surcharge and partner override sources.
type PricingConfig struct {
	DepotLat      float64
	DepotLng      float64
	OverridesFile string
}

// CRMConfig points at the CRM used to mirror submitted quotes.
type CRMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PSPConfig collects payment provider settings.
type PSPConfig struct {
	StripeAPIKey   string
	SuccessURL     string
	CancelURL      string
	DepositPercent int
}

// WebhookConfig configures outbound automation notifications.
type WebhookConfig struct {
	AutomationURL   string
	SigningSecret   string
	SignatureHeader string
	TimestampHeader string
	Timeout         time.Duration
}

// PartnerConfig holds the signing key for partner session links.
type PartnerConfig struct {
	JWTSecret string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Path:          stringWithDefault(lookup, "API_DATABASE_PATH", defaultDatabasePath),
			MigrationsDir: stringWithDefault(lookup, "API_DATABASE_MIGRATIONS_DIR", defaultMigrationsDir),
		},
		Pricing: PricingConfig{
			DepotLat:      floatWithDefault(lookup, "API_PRICING_DEPOT_LAT", defaultDepotLat),
			DepotLng:      floatWithDefault(lookup, "API_PRICING_DEPOT_LNG", defaultDepotLng),
			OverridesFile: stringWithDefault(lookup, "API_PRICING_OVERRIDES_FILE", ""),
		},
		CRM: CRMConfig{
			BaseURL: stringWithDefault(lookup, "API_CRM_BASE_URL", ""),
			APIKey:  stringWithDefault(lookup, "API_CRM_API_KEY", ""),
			Timeout: durationWithDefault(lookup, "API_CRM_TIMEOUT", defaultCRMTimeout),
		},
		PSP: PSPConfig{
			StripeAPIKey:   stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
			SuccessURL:     stringWithDefault(lookup, "API_PSP_SUCCESS_URL", ""),
			CancelURL:      stringWithDefault(lookup, "API_PSP_CANCEL_URL", ""),
			DepositPercent: intWithDefault(lookup, "API_PSP_DEPOSIT_PERCENT", defaultDepositPercent),
		},
		Webhooks: WebhookConfig{
			AutomationURL:   stringWithDefault(lookup, "API_WEBHOOK_AUTOMATION_URL", ""),
			SigningSecret:   stringWithDefault(lookup, "API_WEBHOOK_SIGNING_SECRET", ""),
			SignatureHeader: stringWithDefault(lookup, "API_WEBHOOK_HEADER_SIGNATURE", defaultHMACSignatureHeader),
			TimestampHeader: stringWithDefault(lookup, "API_WEBHOOK_HEADER_TIMESTAMP", defaultHMACTimestampHeader),
			Timeout:         durationWithDefault(lookup, "API_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
		},
		Partner: PartnerConfig{
			JWTSecret: stringWithDefault(lookup, "API_PARTNER_JWT_SECRET", ""),
		},
		Idempotency: IdempotencyConfig{
			Header: stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:    durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		missing = append(missing, "Database.Path")
	}
	if cfg.Pricing.DepotLat < -90 || cfg.Pricing.DepotLat > 90 {
		missing = append(missing, "Pricing.DepotLat")
	}
	if cfg.Pricing.DepotLng < -180 || cfg.Pricing.DepotLng > 180 {
		missing = append(missing, "Pricing.DepotLng")
	}
	if cfg.PSP.DepositPercent <= 0 || cfg.PSP.DepositPercent > 100 {
		missing = append(missing, "PSP.DepositPercent")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
