package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/securedrop/trustchain/store"
	"github.com/securedrop/trustchain/trust"
	"github.com/securedrop/trustchain/util"
)

const (
	defaultKeysDir       = "keys"
	defaultListenAddress = ":8000"
	defaultMetricsPort   = 9090

	defaultSubmissionsPerMinute = 60
	defaultSubmissionBurst      = 20
)

// Config is the optional YAML configuration. Zero values are replaced by defaults.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Keys   KeysConfig   `yaml:"keys"`
	Store  StoreConfig  `yaml:"store"`
}

// ServerConfig holds the HTTP endpoint and logging settings
type ServerConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	MetricsPort   int    `yaml:"metricsPort"` // negative disables the metrics endpoint
	LogLevel      string `yaml:"logLevel"`
	LogFile       string `yaml:"logFile"`
	LogFormat     string `yaml:"logFormat"`

	// SubmissionsPerMinute limits submissions per client IP. Negative disables the limit.
	SubmissionsPerMinute float64 `yaml:"submissionsPerMinute"`
	SubmissionBurst      int     `yaml:"submissionBurst"`
	TrustForwardedFor    bool    `yaml:"trustForwardedFor"`
}

// KeysConfig holds the key store settings
type KeysConfig struct {
	Dir         string        `yaml:"dir"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
	VerifyRoot  *bool         `yaml:"verifyRoot"`

	// Watch drops the cached intermediate as soon as its record changes on disk
	Watch *bool `yaml:"watch"`
}

// StoreConfig holds the accepted journalist store settings
type StoreConfig struct {
	Engine  string `yaml:"engine"`
	DataDir string `yaml:"dataDir"`
	DSN     string `yaml:"dsn"`
}

// LoadConfig reads path if it is not empty and fills in defaults
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = defaultListenAddress
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = defaultMetricsPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFile == "" {
		c.Server.LogFile = util.LogConsole
	}
	if c.Keys.Dir == "" {
		c.Keys.Dir = defaultKeysDir
	}
	if c.Keys.LoadTimeout == 0 {
		c.Keys.LoadTimeout = trust.DefaultLoadTimeout
	}
	if c.Keys.CacheTTL == 0 {
		c.Keys.CacheTTL = trust.DefaultCacheTTL
	}
	if c.Server.SubmissionsPerMinute == 0 {
		c.Server.SubmissionsPerMinute = defaultSubmissionsPerMinute
	}
	if c.Server.SubmissionBurst <= 0 {
		c.Server.SubmissionBurst = defaultSubmissionBurst
	}
	if c.Keys.VerifyRoot == nil {
		verify := true
		c.Keys.VerifyRoot = &verify
	}
	if c.Keys.Watch == nil {
		watch := true
		c.Keys.Watch = &watch
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = c.Keys.Dir
	}
}

// ApplyFlags overrides file values with flags that were set explicitly
func (c *Config) ApplyFlags(flags *pflag.FlagSet) {
	set := func(name string, apply func(f *pflag.Flag)) {
		f := flags.Lookup(name)
		if f != nil && f.Changed {
			apply(f)
		}
	}

	set("keys-dir", func(f *pflag.Flag) {
		if c.Store.DataDir == c.Keys.Dir {
			c.Store.DataDir = f.Value.String()
		}
		c.Keys.Dir = f.Value.String()
	})
	set("log-level", func(f *pflag.Flag) { c.Server.LogLevel = f.Value.String() })
	set("log-file", func(f *pflag.Flag) { c.Server.LogFile = f.Value.String() })
	set("log-format", func(f *pflag.Flag) { c.Server.LogFormat = f.Value.String() })
	set("port", func(f *pflag.Flag) { c.Server.ListenAddress = ":" + f.Value.String() })
	set("metrics-port", func(f *pflag.Flag) {
		if port, err := flags.GetInt("metrics-port"); err == nil {
			c.Server.MetricsPort = port
		}
	})
	set("store-engine", func(f *pflag.Flag) { c.Store.Engine = f.Value.String() })
	set("datadir", func(f *pflag.Flag) { c.Store.DataDir = f.Value.String() })
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch store.Engine(c.Store.Engine) {
	case "", store.SqliteStoreEngine, store.PostgresStoreEngine, store.MysqlStoreEngine:
	default:
		return fmt.Errorf("unknown store engine %q", c.Store.Engine)
	}

	if c.Keys.LoadTimeout < 0 || c.Keys.CacheTTL < 0 {
		return errors.New("key load timeout and cache TTL must not be negative")
	}

	if c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.Server.MetricsPort)
	}

	return nil
}
