package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but the file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override file and env values.
	FlagOverrides FlagOverrides

	// Getenv is the environment lookup; os.Getenv when nil.
	Getenv func(string) string

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr   *string
	DataDir      *string
	LoggingLevel *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`

	Logging      *LoggingConfig      `toml:"logging"`
	Store        *StoreConfig        `toml:"store"`
	Cache        *cacheFileConfig    `toml:"cache"`
	Auth         *authFileConfig     `toml:"auth"`
	OutboundHTTP *OutboundHTTPConfig `toml:"outbound_http"`
	GreytHR      *greytHRFileConfig  `toml:"greythr"`
	Gemini       *geminiFileConfig   `toml:"gemini"`
}

type cacheFileConfig struct {
	Driver  string         `toml:"driver"`
	Drivers map[string]any `toml:"drivers"`
}

// authFileConfig deliberately has no field for secrets; those are env-only.
type authFileConfig struct {
	TokenExpireMinutes int    `toml:"token_expire_minutes"`
	CookieDomain       string `toml:"cookie_domain"`
	CookieSecure       *bool  `toml:"cookie_secure"`
	CookieSameSite     string `toml:"cookie_samesite"`
}

type greytHRFileConfig struct {
	APIBaseURL      string `toml:"api_base_url"`
	AuthURLTemplate string `toml:"auth_url_template"`
	PageSize        int    `toml:"page_size"`
}

type geminiFileConfig struct {
	Model string `toml:"model"`
}

// Load loads configuration with the following precedence:
//  1. Built-in defaults
//  2. TOML config file values
//  3. Environment variables (secrets are env-only)
//  4. CLI flags
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := DefaultConfig()

	if opts.ConfigPath != "" {
		var fc fileConfig
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}

		overlayFileConfig(cfg, &fc)
	}

	overlayEnv(cfg, getenv)
	overlayFlags(cfg, opts.FlagOverrides)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.AllowedOrigins != nil {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.Logging != nil && fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
	}
	if fc.Cache != nil {
		if fc.Cache.Driver != "" {
			cfg.Cache.Driver = fc.Cache.Driver
		}
		if fc.Cache.Drivers != nil {
			cfg.Cache.Drivers = fc.Cache.Drivers
		}
	}
	if fc.Auth != nil {
		if fc.Auth.TokenExpireMinutes > 0 {
			cfg.Auth.TokenExpireMinutes = fc.Auth.TokenExpireMinutes
		}
		if fc.Auth.CookieDomain != "" {
			cfg.Auth.CookieDomain = fc.Auth.CookieDomain
		}
		if fc.Auth.CookieSecure != nil {
			cfg.Auth.CookieSecure = *fc.Auth.CookieSecure
		}
		if fc.Auth.CookieSameSite != "" {
			cfg.Auth.CookieSameSite = fc.Auth.CookieSameSite
		}
	}
	if fc.OutboundHTTP != nil {
		if fc.OutboundHTTP.TimeoutMS > 0 {
			cfg.OutboundHTTP.TimeoutMS = fc.OutboundHTTP.TimeoutMS
		}
		if fc.OutboundHTTP.ConnectTimeoutMS > 0 {
			cfg.OutboundHTTP.ConnectTimeoutMS = fc.OutboundHTTP.ConnectTimeoutMS
		}
		if fc.OutboundHTTP.MaxResponseBytes > 0 {
			cfg.OutboundHTTP.MaxResponseBytes = fc.OutboundHTTP.MaxResponseBytes
		}
	}
	if fc.GreytHR != nil {
		if fc.GreytHR.APIBaseURL != "" {
			cfg.GreytHR.APIBaseURL = fc.GreytHR.APIBaseURL
		}
		if fc.GreytHR.AuthURLTemplate != "" {
			cfg.GreytHR.AuthURLTemplate = fc.GreytHR.AuthURLTemplate
		}
		if fc.GreytHR.PageSize > 0 {
			cfg.GreytHR.PageSize = fc.GreytHR.PageSize
		}
	}
	if fc.Gemini != nil && fc.Gemini.Model != "" {
		cfg.Gemini.Model = fc.Gemini.Model
	}
}

// overlayEnv applies environment variables. Secret material is only ever
// read from the environment, never from the config file.
func overlayEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("SECRET_KEY"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := getenv("ENCRYPTION_KEY"); v != "" {
		keys := strings.Split(v, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		cfg.Auth.EncryptionKeys = keys
	}
	if v := getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}
}

func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.Store.DataDir = *f.DataDir
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
}

func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Auth.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid auth.cookie_samesite %q: must be one of lax, strict, none", cfg.Auth.CookieSameSite)
	}
	if cfg.GreytHR.PageSize <= 0 {
		return fmt.Errorf("greythr.page_size must be positive")
	}
	return nil
}
