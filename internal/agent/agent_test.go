package agent

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// captureServer accepts connections on a loopback listener and appends
// everything it reads to one shared buffer.
type captureServer struct {
	ln net.Listener

	mu  sync.Mutex
	buf bytes.Buffer
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &captureServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				b := make([]byte, 4096)
				for {
					n, err := conn.Read(b)
					if n > 0 {
						s.mu.Lock()
						s.buf.Write(b[:n])
						s.mu.Unlock()
					}
					if err != nil {
						return
					}
				}
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *captureServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *captureServer) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *captureServer) waitFor(t *testing.T, want []byte) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Equal(s.bytes(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("received %v, want %v", s.bytes(), want)
}

func writeInput(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packets.txt")
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastConfig(input string, port int) Config {
	cfg := DefaultConfig()
	cfg.InputFile = input
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.Rate = 500
	cfg.ConnectTimeout = 2 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	cfg.PollInterval = 50 * time.Millisecond
	return cfg
}

func TestRunSendsParsedPayloads(t *testing.T) {
	srv := newCaptureServer(t)

	input := writeInput(t, `# comment, nothing to send

[01, 7F, 0x02]
noise [GG] noise
[256]
frame 9 -> [DE AD]
[]
`)
	cfg := fastConfig(input, srv.port())

	var outcomes []Outcome
	cfg.OnOutcome = func(o Outcome) { outcomes = append(outcomes, o) }

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := Summary{Lines: 7, Sent: 3, Skipped: 2, ParseErrors: 2, SendErrors: 0}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	wantKinds := []OutcomeKind{
		OutcomeSkipped, OutcomeSkipped, OutcomeSent,
		OutcomeParseError, OutcomeParseError, OutcomeSent, OutcomeSent,
	}
	if len(outcomes) != len(wantKinds) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(wantKinds))
	}
	for i, k := range wantKinds {
		if outcomes[i].Kind != k {
			t.Errorf("outcome[%d].Kind = %v, want %v", i, outcomes[i].Kind, k)
		}
		if outcomes[i].Line != i+1 {
			t.Errorf("outcome[%d].Line = %d, want %d", i, outcomes[i].Line, i+1)
		}
	}
	if outcomes[2].Bytes != 3 {
		t.Errorf("sent bytes = %d, want 3", outcomes[2].Bytes)
	}
	if outcomes[6].Bytes != 0 {
		t.Errorf("empty list bytes = %d, want 0", outcomes[6].Bytes)
	}

	srv.waitFor(t, []byte{0x01, 0x7F, 0x02, 0xDE, 0xAD})
}

func TestRunFinalLineWithoutNewline(t *testing.T) {
	srv := newCaptureServer(t)
	input := writeInput(t, "[AA]") // no trailing newline
	cfg := fastConfig(input, srv.port())

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Sent != 1 || sum.Lines != 1 {
		t.Errorf("summary = %+v, want 1 line sent", sum)
	}
	srv.waitFor(t, []byte{0xAA})
}

func TestRunMissingInputIsFatal(t *testing.T) {
	cfg := fastConfig(filepath.Join(t.TempDir(), "missing.txt"), 9)
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestRunContinuesPastSendErrors(t *testing.T) {
	// Reserve a port with nothing listening behind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	input := writeInput(t, "[01]\n[02]\n")
	cfg := fastConfig(input, port)
	cfg.ConnectTimeout = 200 * time.Millisecond

	sum, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SendErrors != 2 || sum.Sent != 0 {
		t.Errorf("summary = %+v, want 2 send errors and 0 sent", sum)
	}
}

func TestRunFollowPicksUpAppendedLines(t *testing.T) {
	srv := newCaptureServer(t)
	input := writeInput(t, "[01]\n")

	cfg := fastConfig(input, srv.port())
	cfg.Follow = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		sum Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := Run(ctx, cfg)
		done <- result{sum, err}
	}()

	srv.waitFor(t, []byte{0x01})

	f, err := os.OpenFile(input, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("[02 03]\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	srv.waitFor(t, []byte{0x01, 0x02, 0x03})

	cancel()
	select {
	case res := <-done:
		if !errors.Is(res.err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", res.err)
		}
		if res.sum.Sent != 2 {
			t.Errorf("sum.Sent = %d, want 2", res.sum.Sent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestTailWatcherWakesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Long poll so only the fsnotify event can wake us quickly.
	w := newTailWatcher(path, 10*time.Second)
	defer w.Close()

	go func() {
		time.Sleep(100 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return
		}
		_, _ = f.WriteString("more")
		f.Close()
	}()

	start := time.Now()
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Wait took %v, expected fsnotify wakeup", elapsed)
	}
}

func TestTailWatcherHonorsCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	w := newTailWatcher(path, 10*time.Second)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := w.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}
