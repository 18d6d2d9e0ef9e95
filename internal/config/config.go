package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andewx/dieselcompute/backend"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Compiler    CompilerConfig    `mapstructure:"compiler"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ApplicationConfig struct {
	Name string `mapstructure:"name"`
}

type BackendConfig struct {
	Kind       string `mapstructure:"kind"`
	Adapter    string `mapstructure:"adapter"`
	Validation bool   `mapstructure:"validation"`
}

type CompilerConfig struct {
	Toolchain    string        `mapstructure:"toolchain"`
	Optimization string        `mapstructure:"optimization"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name: "dieselcompute",
		},
		Backend: BackendConfig{
			Kind:       "vulkan",
			Adapter:    "none",
			Validation: false,
		},
		Compiler: CompilerConfig{
			Toolchain:    "",
			Optimization: "default",
			Timeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults. An explicit
// cfgFile must exist; the search paths are optional.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dieselcompute"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("dieselcompute")
	}

	v.SetEnvPrefix("DIESELCOMPUTE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks every enumerated value parses.
func (c *Config) Validate() error {
	if _, err := c.BackendKind(); err != nil {
		return err
	}
	if _, err := c.AdapterKind(); err != nil {
		return err
	}
	if _, err := c.OptimizationLevel(); err != nil {
		return err
	}
	if c.Compiler.Timeout < 0 {
		return errors.New("compiler.timeout must not be negative")
	}
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

func (c *Config) BackendKind() (backend.BackendKind, error) {
	return backend.ParseBackendKind(c.Backend.Kind)
}

func (c *Config) AdapterKind() (backend.AdapterKind, error) {
	return backend.ParseAdapterKind(c.Backend.Adapter)
}

func (c *Config) OptimizationLevel() (backend.OptimizationLevel, error) {
	return backend.ParseOptimizationLevel(c.Compiler.Optimization)
}

// FactoryDesc builds the device factory descriptor.
func (c *Config) FactoryDesc() backend.DeviceFactoryDesc {
	return backend.DeviceFactoryDesc{
		ApplicationName:  c.Application.Name,
		EnableValidation: c.Backend.Validation,
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("application.name", cfg.Application.Name)

	v.SetDefault("backend.kind", cfg.Backend.Kind)
	v.SetDefault("backend.adapter", cfg.Backend.Adapter)
	v.SetDefault("backend.validation", cfg.Backend.Validation)

	v.SetDefault("compiler.toolchain", cfg.Compiler.Toolchain)
	v.SetDefault("compiler.optimization", cfg.Compiler.Optimization)
	v.SetDefault("compiler.timeout", cfg.Compiler.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
