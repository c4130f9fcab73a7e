// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type (
	// Config contains every knob the server reads at start.
	Config struct {
		Bind    string  `env:"BIND" envDefault:"localhost:5000"`
		Store   string  `env:"STORE" envDefault:"memory"`
		Env     string  `env:"NODE_ENV" envDefault:"development"`
		Google  Google  `envPrefix:"GOOGLE_"`
		Session Session `envPrefix:"SESSION_"`
		CORS    CORS    `envPrefix:"CORS_"`
		Log     Log     `envPrefix:"LOG_"`
		Client  Client  `envPrefix:"CLIENT_"`

		// JWTSecret is removed from the environment once read.
		JWTSecret string `env:"JWT_SECRET,required,notEmpty,unset"`
	}

	Google struct {
		ClientID      string        `env:"CLIENT_ID,required,notEmpty"`
		VerifyTimeout time.Duration `env:"VERIFY_TIMEOUT" envDefault:"10s"`
	}

	Session struct {
		TTL            time.Duration `env:"TTL" envDefault:"168h"`
		RevokeOnLogout bool          `env:"REVOKE_ON_LOGOUT" envDefault:"false"`
		CookieName     string        `env:"COOKIE_NAME" envDefault:"jwt"`
	}

	CORS struct {
		Origin string `env:"ORIGIN" envDefault:"http://localhost:5173"`
	}

	Client struct {
		// DevURL, when set, replaces the embedded client with a proxy to a
		// development server.
		DevURL string `env:"DEV_URL"`
	}

	Log struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Format string `env:"FORMAT" envDefault:"json"`
	}
)

// Load parses the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses the given environment map, or the process environment
// when environ is nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("config: unable to parse environment, cause %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production reports whether cookies must be marked secure.
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store %q, expecting %v or %v", c.Store, StoreMemory, StoreSQLite)
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	if c.Google.VerifyTimeout <= 0 {
		return errors.New("config: verify timeout must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("config: session cookie name cannot be empty")
	}
	if c.Client.DevURL != "" {
		u, err := url.Parse(c.Client.DevURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: client dev url %q must be an absolute url", c.Client.DevURL)
		}
	}
	return nil
}
