// Package sender maintains a single persistent TCP connection and writes
// byte payloads to it, reconnecting with a bounded retry budget when the
// peer drops the socket.
package sender

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrExhaustedRetries is returned (wrapped) when a connect cycle uses up
// its full attempt budget without reaching the peer.
var ErrExhaustedRetries = errors.New("sender: connect attempts exhausted")

// SendError reports a send whose initial attempt and single resend both
// failed. Second is the error the caller acts on; First is kept for
// diagnostics.
type SendError struct {
	First  error
	Second error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sender: send failed: %v (initial error: %v)", e.Second, e.First)
}

func (e *SendError) Unwrap() []error { return []error{e.Second, e.First} }

// Config carries the dial target and retry policy. Values are fixed at
// construction; Validate on the agent config guarantees they are sane, so
// nothing here re-checks them.
type Config struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// Addr returns the host:port dial target.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Conn owns at most one outbound TCP socket and lazily establishes it.
// Sends are fire-and-forget raw writes with no framing and no reads.
//
// Conn is not safe for concurrent use; callers must serialize access.
type Conn struct {
	cfg   Config
	log   zerolog.Logger
	conn  net.Conn
	dials int
}

// New returns an unconnected Conn. No I/O happens until the first
// EnsureConnected or Send.
func New(cfg Config, log zerolog.Logger) *Conn {
	return &Conn{cfg: cfg, log: log}
}

// Connected reports whether a live socket is currently held.
func (c *Conn) Connected() bool { return c.conn != nil }

// Dials returns the number of dial attempts made so far.
func (c *Conn) Dials() int { return c.dials }

// EnsureConnected makes sure a socket is open, dialing up to MaxRetries
// times with ConnectTimeout per attempt. It is a no-op when already
// connected. On failure the returned error matches ErrExhaustedRetries and
// wraps the last dial error.
func (c *Conn) EnsureConnected() error {
	if c.conn != nil {
		return nil
	}
	addr := c.cfg.Addr()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.dials++
		conn, err := net.DialTimeout("tcp", addr, c.cfg.ConnectTimeout)
		if err == nil {
			c.conn = conn
			c.log.Debug().Str("addr", addr).Int("attempt", attempt).Msg("connected")
			return nil
		}
		lastErr = err
		c.log.Warn().Err(err).Str("addr", addr).
			Int("attempt", attempt).Int("max", c.cfg.MaxRetries).
			Msg("connect failed")
		// The delay applies after every failed attempt, the last included.
		time.Sleep(c.cfg.RetryDelay)
	}
	return fmt.Errorf("sender: connect to %s: %w after %d attempts: %w",
		addr, ErrExhaustedRetries, c.cfg.MaxRetries, lastErr)
}

// Send writes payload to the persistent connection. On any failure the
// socket is discarded and one full reconnect-and-resend cycle runs; if that
// also fails Send returns a *SendError carrying both causes. The write is
// all-or-nothing: a short write surfaces as an error, never as success.
func (c *Conn) Send(payload []byte) error {
	firstErr := c.writeOnce(payload)
	if firstErr == nil {
		return nil
	}
	c.Close()
	if secondErr := c.writeOnce(payload); secondErr != nil {
		return &SendError{First: firstErr, Second: secondErr}
	}
	c.log.Info().Int("bytes", len(payload)).Msg("resend after reconnect succeeded")
	return nil
}

func (c *Conn) writeOnce(payload []byte) error {
	if err := c.EnsureConnected(); err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectTimeout)); err != nil {
		c.Close()
		return fmt.Errorf("sender: set write deadline: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.Close()
		return fmt.Errorf("sender: write %d bytes: %w", len(payload), err)
	}
	return nil
}

// Close discards the socket if one is held, suppressing any close error.
// Safe to call repeatedly.
func (c *Conn) Close() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}
