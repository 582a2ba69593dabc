// Package config loads process settings from flags, IDRELAY_* environment
// variables and an optional YAML file, and maps them onto idrelay.Config.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/idrelay"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key: jwt.secret_key is read
// from IDRELAY_JWT_SECRET_KEY.
const EnvPrefix = "IDRELAY"

// Provider names accepted in Settings.Provider.
const (
	ProviderGoogle = "google"
	ProviderOIDC   = "oidc"
	ProviderStatic = "static"
)

// Settings is the full process configuration after flags, env and file are merged.
type Settings struct {
	Addr       string             `mapstructure:"addr"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	Provider   string             `mapstructure:"provider"`
	Google     GoogleSettings     `mapstructure:"google"`
	OIDC       OIDCSettings       `mapstructure:"oidc"`
	Static     StaticSettings     `mapstructure:"static"`
	Cookie     CookieSettings     `mapstructure:"cookie"`
	Login      LoginSettings      `mapstructure:"login"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Revocation RevocationSettings `mapstructure:"revocation"`
	Audit      AuditSettings      `mapstructure:"audit"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
	CORS       CORSSettings       `mapstructure:"cors"`
	Log        LogSettings        `mapstructure:"log"`
}

// JWTSettings configures credential signing.
type JWTSettings struct {
	SecretKey string `mapstructure:"secret_key"`
	Algorithm string `mapstructure:"algorithm"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// GoogleSettings holds the Google OAuth client.
type GoogleSettings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// OIDCSettings holds a generic OIDC client.
type OIDCSettings struct {
	Name         string   `mapstructure:"name"`
	IssuerURL    string   `mapstructure:"issuer_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// StaticSettings is the fixed identity of the development provider.
type StaticSettings struct {
	Email       string `mapstructure:"email"`
	Name        string `mapstructure:"name"`
	CallbackURL string `mapstructure:"callback_url"`
}

// CookieSettings overrides credential cookie attributes.
type CookieSettings struct {
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

// LoginSettings bounds the login handshake.
type LoginSettings struct {
	ChallengeTTL  time.Duration `mapstructure:"challenge_ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	AttemptWindow time.Duration `mapstructure:"attempt_window"`
}

// RedisSettings is the optional Redis backend for the limiter and denylist.
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RevocationSettings enables the logout denylist.
type RevocationSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// AuditSettings configures the audit stream.
type AuditSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is "-" for stdout, "log" for the process logger, or a file that
	// is appended to.
	Path       string `mapstructure:"path"`
	BufferSize int    `mapstructure:"buffer_size"`
	DropIfFull bool   `mapstructure:"drop_if_full"`
}

// MetricsSettings toggles counters and the latency histogram.
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
	Latency bool `mapstructure:"latency"`
}

// CORSSettings lists browser origins allowed to call with credentials.
type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// NewViper returns a viper instance with every key defaulted and environment
// lookup enabled. Keys need a default to be picked up from the environment by
// Unmarshal.
func NewViper() *viper.Viper {
	v := viper.New()
	def := idrelay.DefaultConfig()

	v.SetDefault("addr", ":8080")
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", def.Credential.SigningMethod)
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("provider", ProviderGoogle)
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("oidc.name", "")
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("oidc.scopes", []string{})
	v.SetDefault("static.email", "")
	v.SetDefault("static.name", "")
	v.SetDefault("static.callback_url", "")
	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.secure", def.Cookie.Secure)
	v.SetDefault("cookie.same_site", "lax")
	v.SetDefault("login.challenge_ttl", def.Login.ChallengeTTL)
	v.SetDefault("login.max_attempts", def.Login.MaxAttempts)
	v.SetDefault("login.attempt_window", def.Login.AttemptWindow)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("revocation.enabled", false)
	v.SetDefault("revocation.prefix", def.Revocation.RedisPrefix)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "-")
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.latency", false)
	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:5173",
		"https://localhost:5173",
		"https://accounts.google.com",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.no_color", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file when set and decodes v into Settings.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: config file %s not found", idrelay.ErrConfiguration, file)
			}
			return nil, fmt.Errorf("%w: reading %s: %w", idrelay.ErrConfiguration, file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: decoding settings: %w", idrelay.ErrConfiguration, err)
	}
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	return &s, nil
}

// RelayConfig maps s onto idrelay.Config and validates the result.
func (s *Settings) RelayConfig() (idrelay.Config, error) {
	cfg := idrelay.DefaultConfig()

	cfg.Credential.Secret = []byte(s.JWT.SecretKey)
	cfg.Credential.SigningMethod = s.JWT.Algorithm
	cfg.Credential.Issuer = s.JWT.Issuer
	cfg.Credential.Audience = s.JWT.Audience

	sameSite, err := parseSameSite(s.Cookie.SameSite)
	if err != nil {
		return idrelay.Config{}, err
	}
	cfg.Cookie.Domain = s.Cookie.Domain
	cfg.Cookie.Secure = s.Cookie.Secure
	cfg.Cookie.SameSite = sameSite

	cfg.Login.ChallengeTTL = s.Login.ChallengeTTL
	cfg.Login.MaxAttempts = s.Login.MaxAttempts
	cfg.Login.AttemptWindow = s.Login.AttemptWindow

	cfg.Revocation.Enabled = s.Revocation.Enabled
	cfg.Revocation.RedisPrefix = s.Revocation.Prefix

	cfg.Audit.Enabled = s.Audit.Enabled
	cfg.Audit.BufferSize = s.Audit.BufferSize
	cfg.Audit.DropIfFull = s.Audit.DropIfFull

	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.Latency

	if s.Revocation.Enabled && s.Redis.Addr == "" {
		return idrelay.Config{}, fmt.Errorf("%w: revocation.enabled requires redis.addr", idrelay.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return idrelay.Config{}, err
	}
	return cfg, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: cookie.same_site %q: want lax, strict or none", idrelay.ErrConfiguration, v)
	}
}
