package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/LumeraProtocol/arprov/pkg/capability"
)

const (
	ProviderADB     = "adb"
	ProviderProfile = "profile"
)

// Config represents the arprov configuration file.
type Config struct {
	Provisioner ProvisionerConfig `mapstructure:"provisioner" yaml:"provisioner"`
	Runtime     RuntimeConfig     `mapstructure:"runtime" yaml:"runtime"`
	Device      DeviceConfig      `mapstructure:"device" yaml:"device"`
	Provider    ProviderConfig    `mapstructure:"provider" yaml:"provider"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// ProvisionerConfig mirrors capability.Config.
type ProvisionerConfig struct {
	MaxAttempts            int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	QueryTimeout           time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	RetryBackoff           time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	MaxBackoff             time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	AutoPromptInstall      bool          `mapstructure:"auto_prompt_install" yaml:"auto_prompt_install"`
	RequestInstallOnPrompt bool          `mapstructure:"request_install_on_prompt" yaml:"request_install_on_prompt"`
}

// RuntimeConfig identifies the AR runtime package and its minimum version.
type RuntimeConfig struct {
	Package    string `mapstructure:"package" yaml:"package"`
	MinVersion string `mapstructure:"min_version" yaml:"min_version"`
}

// DeviceConfig holds the device requirements.
type DeviceConfig struct {
	MinAPILevel   int      `mapstructure:"min_api_level" yaml:"min_api_level"`
	SupportedABIs []string `mapstructure:"supported_abis" yaml:"supported_abis"`
}

// ProviderConfig selects and tunes the capability provider.
type ProviderConfig struct {
	Type              string        `mapstructure:"type" yaml:"type"`                               // adb or profile
	ADBPath           string        `mapstructure:"adb_path" yaml:"adb_path"`                       // adb binary
	Serial            string        `mapstructure:"serial" yaml:"serial,omitempty"`                 // adb -s target; empty for the only device
	ProfilePath       string        `mapstructure:"profile_path" yaml:"profile_path"`               // YAML device profile
	PropertyCacheTTL  time.Duration `mapstructure:"property_cache_ttl" yaml:"property_cache_ttl"`   // static getprop cache
	CommandsPerSecond int           `mapstructure:"commands_per_second" yaml:"commands_per_second"` // adb rate limit
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	pc := capability.DefaultConfig()
	return &Config{
		Provisioner: ProvisionerConfig{
			MaxAttempts:            pc.MaxAttempts,
			QueryTimeout:           pc.QueryTimeout,
			RetryBackoff:           pc.RetryBackoff,
			MaxBackoff:             pc.MaxBackoff,
			AutoPromptInstall:      pc.AutoPromptInstall,
			RequestInstallOnPrompt: pc.RequestInstallOnPrompt,
		},
		Runtime: RuntimeConfig{
			Package:    DefaultRuntimePackage,
			MinVersion: DefaultMinRuntimeVersion,
		},
		Device: DeviceConfig{
			MinAPILevel:   DefaultMinAPILevel,
			SupportedABIs: DefaultSupportedABIs(),
		},
		Provider: ProviderConfig{
			Type:              DefaultProviderType,
			ADBPath:           DefaultADBPath,
			ProfilePath:       DefaultProfilePath,
			PropertyCacheTTL:  DefaultPropertyCacheTTL,
			CommandsPerSecond: DefaultCommandsPerSecond,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("provisioner.max_attempts", d.Provisioner.MaxAttempts)
	v.SetDefault("provisioner.query_timeout", d.Provisioner.QueryTimeout)
	v.SetDefault("provisioner.retry_backoff", d.Provisioner.RetryBackoff)
	v.SetDefault("provisioner.max_backoff", d.Provisioner.MaxBackoff)
	v.SetDefault("provisioner.auto_prompt_install", d.Provisioner.AutoPromptInstall)
	v.SetDefault("provisioner.request_install_on_prompt", d.Provisioner.RequestInstallOnPrompt)

	v.SetDefault("runtime.package", d.Runtime.Package)
	v.SetDefault("runtime.min_version", d.Runtime.MinVersion)

	v.SetDefault("device.min_api_level", d.Device.MinAPILevel)
	v.SetDefault("device.supported_abis", d.Device.SupportedABIs)

	v.SetDefault("provider.type", d.Provider.Type)
	v.SetDefault("provider.adb_path", d.Provider.ADBPath)
	v.SetDefault("provider.serial", d.Provider.Serial)
	v.SetDefault("provider.profile_path", d.Provider.ProfilePath)
	v.SetDefault("provider.property_cache_ttl", d.Provider.PropertyCacheTTL)
	v.SetDefault("provider.commands_per_second", d.Provider.CommandsPerSecond)

	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration from path, applying defaults for missing keys and
// ARPROV_* environment overrides (ARPROV_PROVISIONER_MAX_ATTEMPTS, ...). An
// empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Relative profile paths are resolved against the config file.
	if path != "" && cfg.Provider.ProfilePath != "" && !filepath.IsAbs(cfg.Provider.ProfilePath) {
		cfg.Provider.ProfilePath = filepath.Join(filepath.Dir(path), cfg.Provider.ProfilePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes configuration to a file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. Every failure wraps
// capability.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.CapabilityConfig().Validate(); err != nil {
		return err
	}

	var errs []error
	switch c.Provider.Type {
	case ProviderADB:
		if c.Provider.ADBPath == "" {
			errs = append(errs, errors.New("provider.adb_path is required"))
		}
		if c.Provider.CommandsPerSecond <= 0 {
			errs = append(errs, errors.New("provider.commands_per_second must be positive"))
		}
		if c.Runtime.Package == "" {
			errs = append(errs, errors.New("runtime.package is required"))
		}
	case ProviderProfile:
		if c.Provider.ProfilePath == "" {
			errs = append(errs, errors.New("provider.profile_path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("provider.type %q is not one of %s, %s", c.Provider.Type, ProviderADB, ProviderProfile))
	}
	if c.Device.MinAPILevel < 0 {
		errs = append(errs, errors.New("device.min_api_level cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", capability.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// CapabilityConfig returns the provisioner settings.
func (c *Config) CapabilityConfig() capability.Config {
	return capability.Config{
		MaxAttempts:            c.Provisioner.MaxAttempts,
		QueryTimeout:           c.Provisioner.QueryTimeout,
		RetryBackoff:           c.Provisioner.RetryBackoff,
		MaxBackoff:             c.Provisioner.MaxBackoff,
		AutoPromptInstall:      c.Provisioner.AutoPromptInstall,
		RequestInstallOnPrompt: c.Provisioner.RequestInstallOnPrompt,
	}
}

// Policy returns the classification policy.
func (c *Config) Policy() capability.Policy {
	return capability.Policy{
		MinRuntimeVersion: c.Runtime.MinVersion,
		MinAPILevel:       c.Device.MinAPILevel,
		SupportedABIs:     append([]string(nil), c.Device.SupportedABIs...),
	}
}
