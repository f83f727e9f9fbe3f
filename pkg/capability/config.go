package capability

import (
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts  = 3
	DefaultQueryTimeout = 5 * time.Second
	DefaultRetryBackoff = 1 * time.Second
	DefaultMaxBackoff   = 30 * time.Second
)

// Config tunes a Provisioner.
type Config struct {
	// MaxAttempts bounds the capability queries per evaluation round.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// QueryTimeout bounds a single capability query.
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	// RetryBackoff is the first wait after an inconclusive query; it doubles
	// on every further retry up to MaxBackoff.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	// AutoPromptInstall turns outdated / missing runtimes into PromptInstall
	// instead of Disable.
	AutoPromptInstall bool `mapstructure:"auto_prompt_install" yaml:"auto_prompt_install"`
	// RequestInstallOnPrompt makes Evaluate call Provider.RequestInstall
	// itself when it resolves PromptInstall.
	RequestInstallOnPrompt bool `mapstructure:"request_install_on_prompt" yaml:"request_install_on_prompt"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       DefaultMaxAttempts,
		QueryTimeout:      DefaultQueryTimeout,
		RetryBackoff:      DefaultRetryBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		AutoPromptInstall: true,
	}
}

// Validate returns an error wrapping ErrInvalidConfig for unusable settings.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query_timeout must be positive, got %s", ErrInvalidConfig, c.QueryTimeout)
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("%w: retry_backoff must be positive, got %s", ErrInvalidConfig, c.RetryBackoff)
	}
	if c.MaxBackoff < c.RetryBackoff {
		return fmt.Errorf("%w: max_backoff (%s) must not be below retry_backoff (%s)", ErrInvalidConfig, c.MaxBackoff, c.RetryBackoff)
	}
	return nil
}
