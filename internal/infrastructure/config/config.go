package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	RBAC    RBACConfig
	Session SessionConfig
	Auth    AuthConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type RBACConfig struct {
	BaseURL string        `env:"RBAC_API_URL, required"`
	Timeout time.Duration `env:"RBAC_TIMEOUT, default=10s"`
	CAFile  string        `env:"RBAC_CA_FILE"`
}

type SessionConfig struct {
	CookieName   string        `env:"SESSION_COOKIE_NAME,   default=sessionid"`
	TTL          time.Duration `env:"SESSION_TTL,           default=24h"`
	HashKey      string        `env:"SESSION_HASH_KEY"`
	BlockKey     string        `env:"SESSION_BLOCK_KEY"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE, default=true"`
}

type AuthConfig struct {
	LoginPath      string   `env:"AUTH_LOGIN_PATH,      default=/hrms-login/"`
	LogoutPath     string   `env:"AUTH_LOGOUT_PATH,     default=/hrms-logout/"`
	LandingPath    string   `env:"AUTH_LANDING_PATH,    default=/dashboard/"`
	ExemptPrefixes []string `env:"AUTH_EXEMPT_PREFIXES, default=/static/,/media/,/admin/,/health"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI,       default=mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DB,        default=marketing_access"`
	AuditRetention time.Duration `env:"AUDIT_RETENTION, default=2160h"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.RBAC.BaseURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		errs = append(errs, fmt.Errorf("RBAC_API_URL %q must be an absolute https url", c.RBAC.BaseURL))
	}
	if len(c.Session.HashKey) < 32 {
		errs = append(errs, errors.New("SESSION_HASH_KEY must be at least 32 bytes"))
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		errs = append(errs, errors.New("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	for name, p := range map[string]string{
		"AUTH_LOGIN_PATH":   c.Auth.LoginPath,
		"AUTH_LOGOUT_PATH":  c.Auth.LogoutPath,
		"AUTH_LANDING_PATH": c.Auth.LandingPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("%s %q must start with /", name, p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the service runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Exempt returns the prefixes that skip authentication. The login and
// logout paths are always included.
func (c *Config) Exempt() []string {
	out := []string{c.Auth.LoginPath, c.Auth.LogoutPath}
	for _, p := range c.Auth.ExemptPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
