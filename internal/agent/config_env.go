package agent

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (HEXSHIP_*). It respects flags that have been explicitly set (changed
// map). Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("HEXSHIP_HOST"), &cfg.Host)

	if err := s.setIntFromString("port", os.Getenv("HEXSHIP_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", os.Getenv("HEXSHIP_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setFloatFromString("rate", os.Getenv("HEXSHIP_RATE"), &cfg.Rate); err != nil {
		return err
	}

	if err := s.setDuration("connect-timeout", os.Getenv("HEXSHIP_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", os.Getenv("HEXSHIP_RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("poll", os.Getenv("HEXSHIP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setBoolFromString("follow", os.Getenv("HEXSHIP_FOLLOW"), &cfg.Follow)
	s.setBoolFromString("log-payloads", os.Getenv("HEXSHIP_LOG_PAYLOADS"), &cfg.LogPayloads)

	return nil
}
