// Package config provides gateway configuration with multi-source priority.
//
// Sources (highest to lowest):
//  1. Environment variables (including a .env.local file loaded at startup)
//  2. Config file (./config.yaml)
//  3. Default values
//
// Error handling follows sentinel errors checked with errors.Is(), wrapped
// with context via fmt.Errorf("%w: ...").
//
// Security: the session credential, API hash and encryption key are masked
// in MarshalJSON; never log the raw struct fields.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIID indicates the platform application id is not set.
	ErrMissingAPIID = errors.New("missing API id")

	// ErrMissingAPIHash indicates the platform application hash is not set.
	ErrMissingAPIHash = errors.New("missing API hash")

	// ErrMissingSession indicates no session credential is configured.
	// Run the login command to produce one.
	ErrMissingSession = errors.New("missing session credential")

	// ErrMissingCryptKey indicates the media-token encryption key is not set.
	ErrMissingCryptKey = errors.New("missing crypt key")

	// ErrInvalidBridgeURL indicates the bridge endpoint is not a valid URL.
	ErrInvalidBridgeURL = errors.New("invalid bridge URL")
)

// DotenvFile is the environment file loaded before viper, mirroring the
// deployment convention of keeping secrets out of the shell environment.
const DotenvFile = ".env.local"

// Config stores gateway configuration.
type Config struct {
	// Platform application identity.
	APIID   string `mapstructure:"api_id" json:"api_id"`
	APIHash string `mapstructure:"api_hash" json:"api_hash"` // SENSITIVE: masked in MarshalJSON

	// Session is the exported session credential used for the single
	// long-lived backend connection.
	Session string `mapstructure:"session" json:"session"` // SENSITIVE: masked in MarshalJSON

	// CryptKey is the URL-safe base64 Fernet key for media tokens.
	CryptKey string `mapstructure:"crypt_key" json:"crypt_key"` // SENSITIVE: masked in MarshalJSON

	// BridgeURL is the MTProto bridge endpoint.
	BridgeURL string `mapstructure:"bridge_url" json:"bridge_url"`

	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr" json:"addr"`

	// AllowedHostsRaw is a comma-separated host allow-list; empty or "*"
	// allows any host. Parsed into AllowedHosts by Load.
	AllowedHostsRaw string   `mapstructure:"allowed_hosts" json:"allowed_hosts"`
	AllowedHosts    []string `mapstructure:"-" json:"-"`

	// AppDomain is the public domain fallback for generated media URLs.
	// Normally the inbound request's own host supersedes it.
	AppDomain string `mapstructure:"app_domain" json:"app_domain"`

	// RedisURI points at the deployment's coordination endpoint. The
	// gateway core does not use it; it is carried for parity with the
	// surrounding infrastructure.
	RedisURI string `mapstructure:"redis_uri" json:"redis_uri"`

	// Debug lowers the log level and switches off JSON log output.
	Debug bool `mapstructure:"debug" json:"debug"`
}

// Load loads configuration with priority env > config file > defaults and
// validates it immediately (fail-fast).
func Load() (*Config, error) {
	cfg, err := LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated loads configuration without the serving checks. The login
// command uses it: no session credential exists yet at that point.
func LoadUnvalidated() (*Config, error) {
	// Secrets conventionally live in .env.local; absence is fine.
	if err := godotenv.Load(DotenvFile); err == nil {
		slog.Debug("loaded environment file", "file", DotenvFile)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.AllowedHosts = SplitHosts(cfg.AllowedHostsRaw)
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("addr", ":8080")
	viper.SetDefault("bridge_url", "http://127.0.0.1:8081")
	viper.SetDefault("allowed_hosts", "*")
	viper.SetDefault("debug", false)
}

// bindEnvVariables binds the environment names the deployment uses.
func bindEnvVariables() {
	for key, env := range map[string]string{
		"api_id":        "API_ID",
		"api_hash":      "API_HASH",
		"session":       "SESSION",
		"crypt_key":     "CRYPT_KEY",
		"allowed_hosts": "ALLOWED_HOSTS",
		"redis_uri":     "REDIS_URI",
		"app_domain":    "APP_DOMAIN",
		"bridge_url":    "BRIDGE_URL",
		"addr":          "ADDR",
		"debug":         "DEBUG",
	} {
		// BindEnv only errors on empty input.
		_ = viper.BindEnv(key, env)
	}
}

// Validate checks that everything serving requires is present. Key
// decodability is checked where the key is consumed (token codec
// construction), which is still before the listener starts.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if strings.TrimSpace(c.APIID) == "" {
		return ErrMissingAPIID
	}
	if strings.TrimSpace(c.APIHash) == "" {
		return ErrMissingAPIHash
	}
	if strings.TrimSpace(c.Session) == "" {
		return ErrMissingSession
	}
	if strings.TrimSpace(c.CryptKey) == "" {
		return ErrMissingCryptKey
	}
	if _, err := url.ParseRequestURI(c.BridgeURL); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidBridgeURL, c.BridgeURL)
	}
	return nil
}

// SplitHosts parses a comma-separated allow-list into trimmed entries,
// dropping empties.
func SplitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// MarshalJSON masks sensitive fields. When adding new secrets to Config,
// update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	masked.APIHash = mask(masked.APIHash)
	masked.Session = mask(masked.Session)
	masked.CryptKey = mask(masked.CryptKey)
	return json.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
