package agent

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	Host           string  `toml:"host"`
	Port           int     `toml:"port"`
	Rate           float64 `toml:"rate"`
	ConnectTimeout string  `toml:"connect_timeout"`
	Retries        int     `toml:"retries"`
	RetryDelay     string  `toml:"retry_delay"`
	PollInterval   string  `toml:"poll_interval"`
	Follow         *bool   `toml:"follow"`
	LogPayloads    *bool   `toml:"log_payloads"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.hexship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".hexship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("retries", fc.Retries, &cfg.MaxRetries)
	s.setFloat("rate", fc.Rate, &cfg.Rate)

	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("log-payloads", fc.LogPayloads, &cfg.LogPayloads)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
