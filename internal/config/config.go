// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package config loads the host configuration. Values come from, in
// increasing precedence: built-in defaults, a YAML file, and command-line
// flags the user set.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/quayside/quayside/internal/xdg"
)

// CodeInvalid is the code of configuration errors.
const CodeInvalid = "CONFIG_INVALID"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultLoadTimeout bounds each extension load.
const DefaultLoadTimeout = 30 * time.Second

// Config is the host configuration.
type Config struct {
	LogFormat     string         `koanf:"log_format"`
	LogLevel      string         `koanf:"log_level"`
	ExtensionsDir string         `koanf:"extensions_dir"`
	WorkspaceDir  string         `koanf:"workspace_dir"`
	HostVersion   string         `koanf:"host_version"`
	LoadTimeout   time.Duration  `koanf:"load_timeout"`
	MetricsAddr   string         `koanf:"metrics_addr"`
	Sandbox       SandboxConfig  `koanf:"sandbox"`
	Storage       StorageConfig  `koanf:"storage"`
	Backends      BackendsConfig `koanf:"backends"`
	// Settings override extension configuration defaults, e.g.
	// orchestration.namespace: prod.
	Settings map[string]any `koanf:"settings"`
}

// SandboxConfig controls sandboxed extensions.
type SandboxConfig struct {
	Enabled bool `koanf:"enabled"`
}

// StorageConfig selects the memento store.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
	DSN    string `koanf:"dsn"`
}

// BackendsConfig holds the command lines of the domain tools.
type BackendsConfig struct {
	Docker          string `koanf:"docker"`
	Kubectl         string `koanf:"kubectl"`
	AnsiblePlaybook string `koanf:"ansible_playbook"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		LogFormat:    "json",
		LogLevel:     "info",
		WorkspaceDir: ".",
		LoadTimeout:  DefaultLoadTimeout,
		Sandbox:      SandboxConfig{Enabled: true},
		Storage:      StorageConfig{Driver: DriverSQLite},
		Backends: BackendsConfig{
			Docker:          "docker",
			Kubectl:         "kubectl",
			AnsiblePlaybook: "ansible-playbook",
		},
	}
	if dir, err := xdg.ExtensionsDir(); err == nil {
		cfg.ExtensionsDir = dir
	}
	if path, err := xdg.StorePath(); err == nil {
		cfg.Storage.Path = path
	}
	return cfg
}

// DefaultPath is $XDG_CONFIG_HOME/quayside/config.yaml.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":     "log_format",
	"log-level":      "log_level",
	"extensions-dir": "extensions_dir",
	"workspace-dir":  "workspace_dir",
	"host-version":   "host_version",
	"load-timeout":   "load_timeout",
	"metrics-addr":   "metrics_addr",
	"sandbox":        "sandbox.enabled",
	"storage-driver": "storage.driver",
	"storage-path":   "storage.path",
	"storage-dsn":    "storage.dsn",
}

// BindFlags registers the flags Load reads on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("extensions-dir", d.ExtensionsDir, "directory scanned for extension packages")
	fs.String("workspace-dir", d.WorkspaceDir, "workspace root exposed to extensions")
	fs.String("host-version", "", "host version reported to engines constraints")
	fs.Duration("load-timeout", d.LoadTimeout, "time allowed for each extension to load")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.Bool("sandbox", d.Sandbox.Enabled, "run executable extensions in child processes")
	fs.String("storage-driver", d.Storage.Driver, "memento store: sqlite, postgres or memory")
	fs.String("storage-path", d.Storage.Path, "sqlite database path")
	fs.String("storage-dsn", "", "postgres connection string")
}

// Load builds the configuration from path and fs. An empty path reads
// DefaultPath if it exists; a named path must exist. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code(CodeInvalid).In("config").With("path", path).Wrapf(err, "load config file")
			}
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).In("config").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeInvalid).In("config").Wrapf(err, "decode config")
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code(CodeInvalid).In("config").With("key", key).Errorf(format, args...)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log_level", "unknown log_level %q", c.LogLevel)
	}
	if c.LoadTimeout <= 0 {
		return invalid("load_timeout", "load_timeout must be positive, got %s", c.LoadTimeout)
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return invalid("storage.path", "storage.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return invalid("storage.dsn", "storage.dsn (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return invalid("storage.driver", "storage.driver must be sqlite, postgres or memory, got %q", c.Storage.Driver)
	}
	return nil
}
