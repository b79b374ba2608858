package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/hexship/internal/agent"
)

const helpDescription = `
Feed a stream of binary packets to a test server or device simulator.

hexship reads an input file line by line, extracts bracketed hex lists like

  [01, 7F, 0x02, 47, 31]

and writes each payload raw over a single persistent TCP connection at a
fixed rate. If the connection drops, it reconnects and resends once before
moving on. Malformed lines are logged and skipped; the run never stops for
a single bad line.
`

var exampleUsage = strings.TrimSpace(`
  hexship packets.txt --host 10.0.0.5 --port 9000
  hexship packets.txt --host sim.local --port 4321 --rate 20 --follow
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := agent.DefaultConfig()
	var cfgPath string

	log := agent.Logger()

	root := &cobra.Command{
		Use:     "hexship FILE",
		Short:   "Send bracketed-hex lines over a persistent TCP connection at a fixed rate",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Args:    cobra.ExactArgs(1),
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputFile = args[0]

			// Load config file first (default ~/.hexship/config.toml), then
			// env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = agent.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && agent.FileExists(cfgFile) {
				fc, err := agent.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := agent.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := agent.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Info().Str("file", cfg.InputFile).Str("host", cfg.Host).
				Int("port", cfg.Port).Float64("rate", cfg.Rate).
				Bool("follow", cfg.Follow).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := agent.Run(ctx, cfg)
			if err != nil && !isCancel(ctx, err) {
				return err
			}
			log.Info().Int("sent", sum.Sent).Int("lines", sum.Lines).Msg("finished")
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.hexship/config.toml)")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "TCP server host or IP")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "TCP server port")
	root.Flags().Float64Var(&cfg.Rate, "rate", cfg.Rate, "payloads per second")
	root.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "socket connect/send timeout")
	root.Flags().IntVar(&cfg.MaxRetries, "retries", cfg.MaxRetries, "connect attempts per cycle")
	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "delay between connect attempts")
	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "follow-mode poll interval when idle")
	root.Flags().BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading lines appended to FILE")
	root.Flags().BoolVar(&cfg.LogPayloads, "log-payloads", cfg.LogPayloads, "log each parsed payload as hex (debug)")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("hexship")
		os.Exit(1)
	}
}

// isCancel reports whether err is just the signal context ending the run.
func isCancel(ctx context.Context, err error) bool {
	return ctx.Err() != nil && err == ctx.Err()
}
