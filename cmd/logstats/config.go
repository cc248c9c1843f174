package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/logstats/internal/logging"
	"github.com/tinytelemetry/logstats/internal/model"
)

const (
	defaultLogLevel    = model.DefaultLogLevel
	defaultMaxLineSize = model.DefaultMaxLineSize
	defaultAPIAddr     = model.DefaultAPIAddr
)

// boundFlags are the flags that double as configuration keys.
var boundFlags = []string{"log-level", "log-file", "max-line-size", "api-enabled", "api-addr", "banner"}

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	LogLevel    string `mapstructure:"log-level" yaml:"log-level"`
	LogFile     string `mapstructure:"log-file" yaml:"log-file"`
	MaxLineSize int    `mapstructure:"max-line-size" yaml:"max-line-size"`
	APIEnabled  bool   `mapstructure:"api-enabled" yaml:"api-enabled"`
	APIAddr     string `mapstructure:"api-addr" yaml:"api-addr"`
	Banner      bool   `mapstructure:"banner" yaml:"banner"`
	ConfigPath  string `mapstructure:"-" yaml:"-"` // not from config file
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("logstats", pflag.ContinueOnError)
	flags.String("config", "", "config file (default is $HOME/.config/logstats/config.yml)")
	flags.Bool("version", false, "print version information")
	flags.Bool("print-config", false, "print the effective configuration as YAML and exit")
	flags.String("log-level", defaultLogLevel, "diagnostics level: debug, info, warn, error")
	flags.String("log-file", "", "write diagnostics to this file instead of stderr")
	flags.Int("max-line-size", defaultMaxLineSize, "longest accepted input line in bytes; a longer line ends the input")
	flags.Bool("api-enabled", false, "serve /api/health, /api/stats and /metrics while running")
	flags.String("api-addr", defaultAPIAddr, "listen address of the status API")
	flags.Bool("banner", true, "print a usage hint on stderr when stdin is a terminal")
	flags.BoolP("help", "h", false, "show help")
	return flags
}

func loadConfig(flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("LOGSTATS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-file", "")
	v.SetDefault("max-line-size", defaultMaxLineSize)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("banner", true)

	for _, name := range boundFlags {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return cfg, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	configUsed := ""
	configPath, _ := flags.GetString("config")
	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".config", "logstats", "config.yml")
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			configUsed = v.ConfigFileUsed()
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = configUsed
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	// Expand ~ in log-file
	if strings.HasPrefix(cfg.LogFile, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LogFile = filepath.Join(home, cfg.LogFile[2:])
		}
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if c.MaxLineSize <= 0 {
		return fmt.Errorf("invalid max-line-size: %d", c.MaxLineSize)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.APIEnabled {
		if _, _, err := net.SplitHostPort(c.APIAddr); err != nil {
			return fmt.Errorf("invalid api-addr %q: %w", c.APIAddr, err)
		}
	}
	return nil
}
