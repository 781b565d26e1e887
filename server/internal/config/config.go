package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/abceng/pressline/pkg/dataset"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRESSLINE"

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultCacheTTL          = 30 * time.Minute
	DefaultBroadcastInterval = 5 * time.Second
	DefaultMaxUploadBytes    = 32 << 20
	DefaultComma             = ","
	DefaultEncoding          = "utf-8"
)

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Input  InputConfig  `yaml:"input"`
	Alerts AlertsConfig `yaml:"alerts" ignored:"true"`
}

// ServerConfig holds the HTTP service settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port" split_words:"true"`

	// Auth configures how the server authenticates REST clients.
	Auth AuthConfig `yaml:"auth"`

	// Cache controls report memoization.
	Cache CacheConfig `yaml:"cache"`

	// BroadcastInterval is how often the latest report is re-sent to
	// WebSocket clients. New reports are pushed immediately regardless.
	BroadcastInterval time.Duration `yaml:"broadcast_interval" split_words:"true"`

	// MaxUploadBytes caps the size of an uploaded production log.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" split_words:"true"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env" split_words:"true"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// CacheConfig controls the memoized report store.
type CacheConfig struct {
	// TTL is how long a report stays cached after it was last requested.
	// Zero disables eviction.
	TTL time.Duration `yaml:"ttl"`
}

// InputConfig describes the production log the server analyses on its own.
type InputConfig struct {
	// Path is the delimited-text file to analyse at startup. Optional: the
	// server also accepts uploads over HTTP.
	Path string `yaml:"path"`

	// Watch re-analyses Path whenever the file changes.
	Watch bool `yaml:"watch"`

	// Comma is the single-character field delimiter.
	Comma string `yaml:"comma"`

	// Encoding is the text encoding: utf-8 | windows-1252 | iso-8859-1.
	Encoding string `yaml:"encoding"`
}

// Options converts the input settings for dataset.Read.
func (in InputConfig) Options() dataset.Options {
	r, _ := utf8.DecodeRuneInString(in.Comma)
	return dataset.Options{Comma: r, Encoding: in.Encoding}
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over report fields:
	// "net_downtime_hours > 40", "unparsed_loss_pct > 10", "kept_rows < 1".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults, then environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			Cache:             CacheConfig{TTL: DefaultCacheTTL},
			BroadcastInterval: DefaultBroadcastInterval,
			MaxUploadBytes:    DefaultMaxUploadBytes,
		},
		Input: InputConfig{
			Watch:    true,
			Comma:    DefaultComma,
			Encoding: DefaultEncoding,
		},
	}
}

var conditionFields = map[string]bool{
	"net_downtime_hours": true,
	"idle_hours":         true,
	"dropped_pct":        true,
	"unparsed_loss_pct":  true,
	"kept_rows":          true,
	"input_rows":         true,
	"total_strokes":      true,
}

var conditionOps = map[string]bool{">": true, ">=": true, "<": true, "<=": true, "==": true}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Cache.TTL < 0 {
		return fmt.Errorf("server.cache.ttl must not be negative")
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if utf8.RuneCountInString(cfg.Input.Comma) != 1 {
		return fmt.Errorf("input.comma %q must be a single character", cfg.Input.Comma)
	}
	if err := dataset.CheckEncoding(cfg.Input.Encoding); err != nil {
		return fmt.Errorf("input.encoding: %w", err)
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		parts := strings.Fields(r.Condition)
		if len(parts) != 3 {
			return fmt.Errorf("alerts.rules[%d] %q: condition %q must be \"field op value\"", i, r.Name, r.Condition)
		}
		if !conditionFields[parts[0]] {
			return fmt.Errorf("alerts.rules[%d] %q: unknown field %q", i, r.Name, parts[0])
		}
		if !conditionOps[parts[1]] {
			return fmt.Errorf("alerts.rules[%d] %q: unknown operator %q", i, r.Name, parts[1])
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
