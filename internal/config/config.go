// Package config loads vmbridge settings from defaults, a config file,
// VMBRIDGE_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"vmbridge/internal/logging"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "VMBRIDGE_"

// Defaults.
const (
	DefaultOutput       = "."
	DefaultSuffix       = "_vmb.go"
	DefaultBridgeImport = "vmbridge/bridge"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = logging.FormatText
)

// ConfigFiles are the file names searched when no explicit file is given.
var ConfigFiles = []string{"vmbridge.yaml", "vmbridge.yml", "vmbridge.toml"}

type Config struct {
	Package      string   `koanf:"package"`
	Output       string   `koanf:"output"`
	Inputs       []string `koanf:"inputs"`
	Suffix       string   `koanf:"suffix"`
	BridgeImport string   `koanf:"bridge_import"`
	FixImports   bool     `koanf:"fix_imports"`
	Clean        bool     `koanf:"clean"`
	Force        bool     `koanf:"force"`
	LogLevel     string   `koanf:"log_level"`
	LogFormat    string   `koanf:"log_format"`
	Jobs         int      `koanf:"jobs"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"output":        DefaultOutput,
		"suffix":        DefaultSuffix,
		"bridge_import": DefaultBridgeImport,
		"fix_imports":   true,
		"clean":         false,
		"force":         false,
		"log_level":     DefaultLogLevel,
		"log_format":    DefaultLogFormat,
		"jobs":          runtime.NumCPU(),
	}
}

// findConfigFile returns explicit when set, else the first of ConfigFiles
// present in dir.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFiles {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load builds the configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults. Only flags that were set
// explicitly take part.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile, ".")
	if used != "" {
		if err := loadFile(k, used); err != nil {
			return nil, err
		}
	}

	// VMBRIDGE_LOG_LEVEL -> log_level; VMBRIDGE_INPUTS is a space separated list.
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "inputs" {
			return key, strings.Fields(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var raw map[string]any
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := k.Load(confmap.Provider(raw, "."), nil); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values and fills in the derived package name.
func (c *Config) Validate() error {
	var errs []error

	if c.Package == "" {
		c.Package = packageFromDir(c.Output)
	}
	if !token.IsIdentifier(c.Package) || token.IsKeyword(c.Package) {
		errs = append(errs, fmt.Errorf("package: %q is not a valid Go package name", c.Package))
	}
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs: must be at least 1, got %d", c.Jobs))
	}
	if !strings.HasSuffix(c.Suffix, ".go") {
		errs = append(errs, fmt.Errorf("suffix: %q must end in .go", c.Suffix))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log_format: unknown format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// packageFromDir derives a package name from the output directory, e.g.
// "./internal/calc" gives "calc".
func packageFromDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	name := strings.ToLower(filepath.Base(abs))
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, name)
}
