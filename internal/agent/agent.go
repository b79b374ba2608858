package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bft-labs/hexship/internal/hexline"
	"github.com/bft-labs/hexship/internal/sender"
)

// Run reads the input file line by line, parses bracketed hex lists, and
// sends each payload over one persistent TCP connection at the configured
// rate. Parse and send failures are reported per line and never stop the
// run; only an unopenable input or a cancelled context does. The connection
// and the input file are released on every exit path.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	var sum Summary

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return sum, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	conn := sender.New(sender.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ConnectTimeout: cfg.ConnectTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
	}, logger)
	defer conn.Close()

	// Eager connect to fail fast on a bad target; a failure here is only a
	// warning since the first send runs the same retry cycle again.
	if cerr := conn.EnsureConnected(); cerr != nil {
		logger.Warn().Err(cerr).Msg("initial connect failed, will retry on first send")
	} else {
		logger.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connected")
	}

	var tail *tailWatcher
	if cfg.Follow {
		tail = newTailWatcher(cfg.InputFile, cfg.PollInterval)
		defer tail.Close()
	}

	delay := cfg.SendDelay()
	r := bufio.NewReaderSize(f, 64*1024)
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		chunk, rerr := r.ReadBytes('\n')
		pending = append(pending, chunk...)
		if rerr == nil {
			sum.Lines++
			record(&sum, processLine(conn, cfg, sum.Lines, trimLine(pending)), cfg)
			pending = pending[:0]
			sleep(ctx, delay)
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if cfg.Follow {
				// Hold any partial trailing line until its newline arrives.
				if werr := tail.Wait(ctx); werr != nil {
					return sum, werr
				}
				continue
			}
			if len(pending) > 0 {
				sum.Lines++
				record(&sum, processLine(conn, cfg, sum.Lines, trimLine(pending)), cfg)
				pending = nil
			}
			logger.Info().Int("lines", sum.Lines).Int("sent", sum.Sent).
				Int("skipped", sum.Skipped).Int("parse_errors", sum.ParseErrors).
				Int("send_errors", sum.SendErrors).Msg("done")
			return sum, nil
		}
		return sum, fmt.Errorf("read input: %w", rerr)
	}
}

func trimLine(raw []byte) string {
	return strings.TrimRight(string(raw), "\r\n")
}

func processLine(conn *sender.Conn, cfg Config, lineno int, line string) Outcome {
	payload, found, err := hexline.Parse(line)
	if err != nil {
		return Outcome{Line: lineno, Kind: OutcomeParseError, Err: err}
	}
	if !found {
		return Outcome{Line: lineno, Kind: OutcomeSkipped}
	}
	if cfg.LogPayloads {
		logger.Debug().Int("line", lineno).Str("payload", hexline.Format(payload)).Msg("parsed")
	}
	if serr := conn.Send(payload); serr != nil {
		return Outcome{Line: lineno, Kind: OutcomeSendError, Err: serr}
	}
	return Outcome{Line: lineno, Kind: OutcomeSent, Bytes: len(payload)}
}

func record(sum *Summary, out Outcome, cfg Config) {
	switch out.Kind {
	case OutcomeSkipped:
		sum.Skipped++
		logger.Debug().Int("line", out.Line).Msg("skipped")
	case OutcomeParseError:
		sum.ParseErrors++
		logger.Error().Int("line", out.Line).Err(out.Err).Msg("parse error")
	case OutcomeSent:
		sum.Sent++
		logger.Info().Int("line", out.Line).Int("bytes", out.Bytes).Msg("sent")
	case OutcomeSendError:
		sum.SendErrors++
		logger.Error().Int("line", out.Line).Err(out.Err).Msg("send error")
	}
	if cfg.OnOutcome != nil {
		cfg.OnOutcome(out)
	}
}

// sleep pauses for the inter-line delay but wakes early on cancellation.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
