package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the toolplan engine configuration
type Config struct {
	// Dispatch
	Dispatch DispatchConfig `json:"dispatch" mapstructure:"dispatch"`

	// Parser
	Parser ParserConfig `json:"parser" mapstructure:"parser"`

	// Capabilities
	Capabilities CapabilitiesConfig `json:"capabilities" mapstructure:"capabilities"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Audit
	Audit AuditConfig `json:"audit" mapstructure:"audit"`
}

// DispatchConfig bounds how a plan's calls are executed
type DispatchConfig struct {
	CallTimeout    time.Duration `json:"call_timeout" mapstructure:"call_timeout"`
	MaxConcurrency int           `json:"max_concurrency" mapstructure:"max_concurrency"`   // 0 = one goroutine per call
	MaxOutputBytes int           `json:"max_output_bytes" mapstructure:"max_output_bytes"` // 0 = unlimited
}

// ParserConfig controls plan parsing
type ParserConfig struct {
	EmbeddedPlan bool `json:"embedded_plan" mapstructure:"embedded_plan"`
}

// CapabilitiesConfig controls which built-in capabilities are registered
type CapabilitiesConfig struct {
	Disabled []string `json:"disabled" mapstructure:"disabled"` // qualified names, e.g. "time.add_days"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	File string `json:"file" mapstructure:"file"` // empty disables the audit trail
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			CallTimeout:    30 * time.Second,
			MaxConcurrency: 4,
			MaxOutputBytes: 10 * 1024,
		},
		Parser: ParserConfig{
			EmbeddedPlan: false,
		},
		Capabilities: CapabilitiesConfig{
			Disabled: []string{},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "toolplan",
			SampleRatio: 1,
		},
	}
}

// IsDisabled reports whether a capability is switched off by configuration
func (c *Config) IsDisabled(qualifiedName string) bool {
	for _, name := range c.Capabilities.Disabled {
		if name == qualifiedName {
			return true
		}
	}
	return false
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dispatch.CallTimeout <= 0 {
		return fmt.Errorf("dispatch.call_timeout must be positive, got %s", c.Dispatch.CallTimeout)
	}
	if c.Dispatch.MaxConcurrency < 0 {
		return fmt.Errorf("dispatch.max_concurrency cannot be negative, got %d", c.Dispatch.MaxConcurrency)
	}
	if c.Dispatch.MaxOutputBytes < 0 {
		return fmt.Errorf("dispatch.max_output_bytes cannot be negative, got %d", c.Dispatch.MaxOutputBytes)
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	valid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging.level %q (valid: %v)", c.Logging.Level, validLevels)
	}

	if c.Tracing.Enabled {
		if c.Tracing.ServiceName == "" {
			return fmt.Errorf("tracing.service_name is required when tracing is enabled")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", c.Tracing.SampleRatio)
		}
	}

	return nil
}
