// Package config provides configuration loading and validation.
package config

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on.
	// Example: ":8000"
	ListenAddr string `json:"listen_addr"`

	// AllowedOrigins are the origins allowed by the CORS middleware.
	AllowedOrigins []string `json:"allowed_origins"`

	Logging      LoggingConfig      `json:"logging"`
	Store        StoreConfig        `json:"store"`
	Cache        CacheConfig        `json:"cache"`
	Auth         AuthConfig         `json:"auth"`
	OutboundHTTP OutboundHTTPConfig `json:"outbound_http"`
	GreytHR      GreytHRConfig      `json:"greythr"`
	Slack        SlackConfig        `json:"slack"`
	Gemini       GeminiConfig       `json:"gemini"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `json:"level"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is the store driver name (sqlite).
	Driver string `json:"driver" toml:"driver"`

	// DataDir is the directory for data files (sqlite db).
	DataDir string `json:"data_dir" toml:"data_dir"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Driver is the cache driver name (memory).
	Driver string `json:"driver"`

	// Drivers holds driver-specific options keyed by driver name.
	Drivers map[string]any `json:"drivers"`
}

// AuthConfig holds admin authentication settings.
type AuthConfig struct {
	// JWTSecret signs access tokens (HS256). Loaded from SECRET_KEY.
	JWTSecret string `json:"jwt_secret"`

	// EncryptionKeys are base64 Fernet keys for cookie payloads and
	// stored GreytHR passwords. The first key signs; all keys verify.
	// Loaded from ENCRYPTION_KEY (comma-separated for rotation).
	EncryptionKeys []string `json:"encryption_keys"`

	// TokenExpireMinutes is the access token lifetime without remember_me.
	TokenExpireMinutes int `json:"token_expire_minutes"`

	// CookieDomain is the auth cookie domain ("" to omit).
	CookieDomain string `json:"cookie_domain"`

	// CookieSecure marks the auth cookie Secure.
	CookieSecure bool `json:"cookie_secure"`

	// CookieSameSite is one of: lax, strict, none.
	CookieSameSite string `json:"cookie_samesite"`
}

// OutboundHTTPConfig holds settings for outbound HTTP requests.
type OutboundHTTPConfig struct {
	// TimeoutMS is the overall request timeout in milliseconds.
	TimeoutMS int `json:"timeout_ms"`

	// ConnectTimeoutMS is the connection timeout in milliseconds.
	ConnectTimeoutMS int `json:"connect_timeout_ms"`

	// MaxResponseBytes is the maximum response body size.
	MaxResponseBytes int64 `json:"max_response_bytes"`
}

// GreytHRConfig holds GreytHR API settings.
type GreytHRConfig struct {
	// APIBaseURL is the GreytHR REST API base, e.g. "https://api.greythr.com".
	APIBaseURL string `json:"api_base_url"`

	// AuthURLTemplate builds the per-tenant token endpoint from the tenant
	// domain. Overridable for tests.
	AuthURLTemplate string `json:"auth_url_template"`

	// PageSize is the roster page size.
	PageSize int `json:"page_size"`
}

// SlackConfig holds Slack API settings.
type SlackConfig struct {
	// BotToken is the bot user OAuth token. Loaded from SLACK_BOT_TOKEN.
	BotToken string `json:"bot_token"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Loaded from GEMINI_API_KEY.
	APIKey string `json:"api_key"`

	// Model is the generation model name.
	Model string `json:"model"`
}

// DefaultConfig returns a Config with sensible defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     ":8000",
		AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: "data",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Auth: AuthConfig{
			TokenExpireMinutes: 30,
			CookieSecure:       false,
			CookieSameSite:     "lax",
		},
		OutboundHTTP: OutboundHTTPConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 1048576,
		},
		GreytHR: GreytHRConfig{
			APIBaseURL:      "https://api.greythr.com",
			AuthURLTemplate: "https://%s/uas/v1/oauth2/client-token",
			PageSize:        25,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
	}
}

// Redacted returns a copy of the config with secrets masked for logging.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = "[REDACTED]"
	}
	if len(out.Auth.EncryptionKeys) > 0 {
		out.Auth.EncryptionKeys = []string{"[REDACTED]"}
	}
	if out.Slack.BotToken != "" {
		out.Slack.BotToken = "[REDACTED]"
	}
	if out.Gemini.APIKey != "" {
		out.Gemini.APIKey = "[REDACTED]"
	}
	return &out
}
