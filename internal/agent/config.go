package agent

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds the configuration for the hex stream feeder.
type Config struct {
	// InputFile is the text file containing bracketed hex lines.
	InputFile string

	Host string
	Port int

	// Rate is the number of payloads per second; the loop sleeps 1/Rate
	// after every processed line, whatever its outcome.
	Rate float64

	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// PollInterval is the idle wait in follow mode when fsnotify delivers
	// nothing.
	PollInterval time.Duration

	// Follow keeps reading lines appended to the input file instead of
	// stopping at EOF.
	Follow bool

	// LogPayloads logs each parsed payload as hex at debug level.
	LogPayloads bool

	// OnOutcome, when set, receives every per-line outcome. Used by
	// embedders and tests; nil is fine.
	OnOutcome func(Outcome) `toml:"-" json:"-"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Rate:           1.0,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     5,
		RetryDelay:     time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// Validate checks the configuration for errors. It runs before any socket
// or file is touched; downstream code relies on the values it accepts.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be > 0, got %g", c.Rate)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// SendDelay returns the fixed inter-line delay derived from Rate.
func (c *Config) SendDelay() time.Duration {
	return time.Duration(float64(time.Second) / c.Rate)
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not
// changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if
// valid. Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
