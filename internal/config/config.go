package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from defaults, then
// an optional YAML file, then BW_* environment variables.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	APIs         APIKeys            `yaml:"apis"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Cache        CacheConfig        `yaml:"cache"`
	IPReputation IPReputationConfig `yaml:"ip_reputation"`
	DarkWeb      DarkWebConfig      `yaml:"dark_web"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Audit        AuditConfig        `yaml:"audit"`
	Feeds        FeedsConfig        `yaml:"feeds"`
}

type ServerConfig struct {
	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"include_caller"`
}

// APIKeys holds provider credentials. An empty key disables that provider.
type APIKeys struct {
	HIBP         string `yaml:"hibp"`
	DeHashed     string `yaml:"dehashed"`
	LeakCheck    string `yaml:"leakcheck"`
	VirusTotal   string `yaml:"virustotal"`
	AbuseIPDB    string `yaml:"abuseipdb"`
	IPQS         string `yaml:"ipqs"`
	GhostProject string `yaml:"ghostproject"`
}

// ProvidersConfig controls outbound calls. BaseURLs overrides a provider's
// endpoint by name (hibp, dehashed, leakcheck, abuseipdb, ipqs, virustotal,
// ipapi, ghostproject).
type ProvidersConfig struct {
	Timeout          time.Duration     `yaml:"timeout"`
	BreakerFailures  int               `yaml:"breaker_failures"`
	BreakerCooldown  time.Duration     `yaml:"breaker_cooldown"`
	BaseURLs         map[string]string `yaml:"base_urls"`
	RequireRangeAuth bool              `yaml:"require_range_auth"`
}

type CacheConfig struct {
	Backend    string    `yaml:"backend"` // memory|sqlite
	Path       string    `yaml:"path"`
	MaxEntries int       `yaml:"max_entries"`
	TTL        TTLConfig `yaml:"ttl"`
}

type TTLConfig struct {
	PasswordCheck time.Duration `yaml:"password_check"`
	IPCheck       time.Duration `yaml:"ip_check"`
	DarkWeb       time.Duration `yaml:"dark_web"`
}

type IPReputationConfig struct {
	CheckProxy          bool                 `yaml:"check_proxy"`
	CheckVPN            bool                 `yaml:"check_vpn"`
	CheckTor            bool                 `yaml:"check_tor"`
	CheckBot            bool                 `yaml:"check_botnet"`
	SuspiciousThreshold int                  `yaml:"suspicious_threshold"`
	GeoRestrictions     GeoRestrictionConfig `yaml:"geo_restrictions"`
	BlocklistPath       string               `yaml:"blocklist_path"`
	BlocklistScore      int                  `yaml:"blocklist_score"`
}

type GeoRestrictionConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedCountries []string `yaml:"allowed_countries"`
	BlockedCountries []string `yaml:"blocked_countries"`
}

type DarkWebConfig struct {
	MaxResults int `yaml:"max_results"`
}

type AlertsConfig struct {
	Workers   int            `yaml:"workers"`
	QueueSize int            `yaml:"queue_size"`
	Timeout   time.Duration  `yaml:"timeout"`
	Email     EmailConfig    `yaml:"email"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Slack     SlackConfig    `yaml:"slack"`
}

type EmailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	BaseURL  string `yaml:"base_url"`
}

type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// FeedsConfig lists the IP blocklist feeds pulled by the feed loader.
type FeedsConfig struct {
	Sources []FeedSource  `yaml:"sources"`
	Timeout time.Duration `yaml:"timeout"`
}

type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:    ":8080",
			GRPCAddr:    ":9091",
			MetricsAddr: ":9090",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Providers: ProvidersConfig{
			Timeout:         5 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL: TTLConfig{
				PasswordCheck: time.Hour,
				IPCheck:       30 * time.Minute,
				DarkWeb:       24 * time.Hour,
			},
		},
		IPReputation: IPReputationConfig{
			CheckProxy:          true,
			CheckVPN:            true,
			CheckTor:            true,
			CheckBot:            true,
			SuspiciousThreshold: 80,
			GeoRestrictions: GeoRestrictionConfig{
				AllowedCountries: []string{"US", "CA", "GB"},
			},
			BlocklistScore: 50,
		},
		DarkWeb: DarkWebConfig{MaxResults: 100},
		Alerts: AlertsConfig{
			Workers:   4,
			QueueSize: 256,
			Timeout:   10 * time.Second,
			Email:     EmailConfig{Enabled: true, Port: 587},
		},
		Feeds: FeedsConfig{Timeout: 30 * time.Second},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the core cannot run with.
func (c *Config) Validate() error {
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("config: providers.timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("config: cache.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL.PasswordCheck <= 0 || c.Cache.TTL.IPCheck <= 0 || c.Cache.TTL.DarkWeb <= 0 {
		return fmt.Errorf("config: cache ttl values must be positive")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("config: audit.path is required when audit is enabled")
	}
	return nil
}

// BaseURL returns the configured override for a provider, or def.
func (c *Config) BaseURL(provider, def string) string {
	if v := c.Providers.BaseURLs[provider]; v != "" {
		return v
	}
	return def
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("BW_HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("BW_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = getEnv("BW_METRICS_ADDR", c.Server.MetricsAddr)
	c.Logging.Level = getEnv("BW_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("BW_LOG_FORMAT", c.Logging.Format)

	c.APIs.HIBP = getEnv("HIBP_API_KEY", c.APIs.HIBP)
	c.APIs.DeHashed = getEnv("DEHASHED_API_KEY", c.APIs.DeHashed)
	c.APIs.LeakCheck = getEnv("LEAKCHECK_API_KEY", c.APIs.LeakCheck)
	c.APIs.VirusTotal = getEnv("VIRUSTOTAL_API_KEY", c.APIs.VirusTotal)
	c.APIs.AbuseIPDB = getEnv("ABUSEIPDB_API_KEY", c.APIs.AbuseIPDB)
	c.APIs.IPQS = getEnv("IPQS_API_KEY", c.APIs.IPQS)
	c.APIs.GhostProject = getEnv("GHOSTPROJECT_API_KEY", c.APIs.GhostProject)

	c.Providers.Timeout = getEnvDuration("BW_PROVIDER_TIMEOUT", c.Providers.Timeout)
	c.Cache.Backend = getEnv("BW_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Path = getEnv("BW_CACHE_PATH", c.Cache.Path)
	c.Cache.TTL.PasswordCheck = getEnvDuration("BW_PASSWORD_CACHE_TTL", c.Cache.TTL.PasswordCheck)
	c.Cache.TTL.IPCheck = getEnvDuration("BW_IP_CACHE_TTL", c.Cache.TTL.IPCheck)
	c.Cache.TTL.DarkWeb = getEnvDuration("BW_DARK_WEB_CACHE_TTL", c.Cache.TTL.DarkWeb)

	c.IPReputation.GeoRestrictions.Enabled = getEnvBool("BW_GEO_RESTRICTIONS", c.IPReputation.GeoRestrictions.Enabled)
	c.IPReputation.GeoRestrictions.AllowedCountries = getEnvList("BW_ALLOWED_COUNTRIES", c.IPReputation.GeoRestrictions.AllowedCountries)
	c.IPReputation.GeoRestrictions.BlockedCountries = getEnvList("BW_BLOCKED_COUNTRIES", c.IPReputation.GeoRestrictions.BlockedCountries)
	c.IPReputation.BlocklistPath = getEnv("BW_BLOCKLIST_PATH", c.IPReputation.BlocklistPath)
	c.DarkWeb.MaxResults = getEnvInt("BW_MAX_DARK_WEB_RESULTS", c.DarkWeb.MaxResults)

	c.Alerts.Email.Enabled = getEnvBool("BW_EMAIL_ALERTS", c.Alerts.Email.Enabled)
	c.Alerts.Email.Recipients = getEnvList("BW_EMAIL_RECIPIENTS", c.Alerts.Email.Recipients)
	c.Alerts.Email.Host = getEnv("BW_SMTP_HOST", c.Alerts.Email.Host)
	c.Alerts.Email.Username = getEnv("BW_SMTP_USERNAME", c.Alerts.Email.Username)
	c.Alerts.Email.Password = getEnv("BW_SMTP_PASSWORD", c.Alerts.Email.Password)
	c.Alerts.Telegram.Enabled = getEnvBool("BW_TELEGRAM_ALERTS", c.Alerts.Telegram.Enabled)
	c.Alerts.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Alerts.Telegram.BotToken)
	c.Alerts.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", c.Alerts.Telegram.ChatID)
	c.Alerts.Slack.Enabled = getEnvBool("BW_SLACK_ALERTS", c.Alerts.Slack.Enabled)
	c.Alerts.Slack.WebhookURL = getEnv("SLACK_WEBHOOK_URL", c.Alerts.Slack.WebhookURL)

	c.Audit.Enabled = getEnvBool("BW_AUDIT_ENABLED", c.Audit.Enabled)
	c.Audit.Path = getEnv("BW_AUDIT_PATH", c.Audit.Path)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getEnvList reads a comma separated list; an explicitly empty value is not
// distinguishable from unset and keeps def.
func getEnvList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
