// Package hexship provides a small agent that reads bracketed hex lines from
// a text file and feeds the resulting byte payloads to a TCP peer over one
// persistent connection at a fixed rate.
//
// Example usage:
//
//	cfg := hexship.DefaultConfig()
//	cfg.InputFile = "packets.txt"
//	cfg.Host = "10.0.0.5"
//	cfg.Port = 9000
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	sum, err := hexship.Run(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("sent %d payloads\n", sum.Sent)
package hexship

import (
	"context"

	"github.com/bft-labs/hexship/internal/agent"
	"github.com/rs/zerolog"
)

// Config holds the configuration for the feeder.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = agent.Config

// Outcome is the per-line result delivered to Config.OnOutcome.
type Outcome = agent.Outcome

// Summary tallies a whole run.
type Summary = agent.Summary

// Run reads the configured input file and sends each parsed payload over a
// persistent TCP connection. It blocks until the input is exhausted (or, in
// follow mode, the context is cancelled). Per-line parse and send failures
// are reported in the Summary, not as errors.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	return agent.Run(ctx, cfg)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set InputFile, Host, and Port before calling Run.
func DefaultConfig() Config {
	return agent.DefaultConfig()
}

// Logger returns the package-level zerolog logger used by the agent.
func Logger() zerolog.Logger {
	return agent.Logger()
}
