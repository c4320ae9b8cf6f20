package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	defaultAddr        = "0.0.0.0:8000"
	defaultDatabaseURL = "mongodb://localhost:27017/zarqash"
	envProduction      = "production"
)

// Config holds the complete application configuration, loadable from
// environment variables (ZARQASH_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8000" usage:"API server listen address"`
	DatabaseURL string `usage:"Store URL: mongodb://, postgres:// or memory:// (ZARQASH_DATABASE_URL, MONGO_URI or DATABASE_URL)" flag:"database-url"`
	Env         string `usage:"Deployment environment; anything but production exposes internal error details (ZARQASH_ENV or NODE_ENV)"`
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Production reports whether internal error details must stay hidden.
func (c *Config) Production() bool {
	return c.Env == envProduction
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "ZARQASH",
		Files:     []string{"config.yaml", "/etc/zarqash/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.RateLimit.Max < 1 {
		return nil, errors.Errorf("rate limit max must be positive, got %d", cfg.RateLimit.Max)
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the conventional unprefixed variables (MONGO_URI,
// DATABASE_URL, NODE_ENV, PORT) onto the configuration when the prefixed ones
// are not set.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		for _, name := range []string{"MONGO_URI", "DATABASE_URL"} {
			if v := os.Getenv(name); v != "" {
				c.DatabaseURL = v
				break
			}
		}
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = defaultDatabaseURL
	}
	if c.Env == "" {
		c.Env = os.Getenv("NODE_ENV")
	}
	if c.Env == "" {
		c.Env = envProduction
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
