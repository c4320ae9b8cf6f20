package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "ZARQASH",
		SkipFiles: true,
		SkipFlags: true,
	}
}

// clearPlatformEnv blanks the unprefixed variables so the host environment
// does not leak into assertions.
func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MONGO_URI", "DATABASE_URL", "NODE_ENV", "PORT"} {
		t.Setenv(name, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearPlatformEnv(t)

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, envProduction, cfg.Env)
	assert.True(t, cfg.Production())
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "MongoURI",
			env:  map[string]string{"MONGO_URI": "mongodb://db:27017/shop"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mongodb://db:27017/shop", cfg.DatabaseURL)
			},
		},
		{
			name: "MongoURIBeforeDatabaseURL",
			env: map[string]string{
				"MONGO_URI":    "mongodb://db:27017/shop",
				"DATABASE_URL": "postgres://pg/shop",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mongodb://db:27017/shop", cfg.DatabaseURL)
			},
		},
		{
			name: "DatabaseURL",
			env:  map[string]string{"DATABASE_URL": "postgres://pg/shop"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://pg/shop", cfg.DatabaseURL)
			},
		},
		{
			name: "PrefixedWins",
			env: map[string]string{
				"ZARQASH_DATABASE_URL": "memory://",
				"MONGO_URI":            "mongodb://db:27017/shop",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "memory://", cfg.DatabaseURL)
			},
		},
		{
			name: "NodeEnvDevelopment",
			env:  map[string]string{"NODE_ENV": "development"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Env)
				assert.False(t, cfg.Production())
			},
		},
		{
			name: "Port",
			env:  map[string]string{"PORT": "9090"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
			},
		},
		{
			name: "ExplicitAddrIgnoresPort",
			env: map[string]string{
				"ZARQASH_ADDR": "127.0.0.1:7000",
				"PORT":         "9090",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPlatformEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(testLoader())
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_InvalidRateLimit(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("ZARQASH_RATE_LIMIT_MAX", "0")

	_, err := loadConfig(testLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit max")
}
