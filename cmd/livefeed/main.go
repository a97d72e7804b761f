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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/livefeed/internal/cliconfig"
	"github.com/bft-labs/livefeed/internal/render"
	"github.com/bft-labs/livefeed/pkg/audio"
	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/notify"
	"github.com/bft-labs/livefeed/plugins/tokenwatcher"
)

const helpDescription = `
Follow a construction-management event feed from the terminal.

Highlights:
  - Reconnects with capped exponential backoff and surfaces session problems.
  - Maps project, material, drawing, worker and sync events to notifications.
  - Suppresses duplicate bursts and plays an audio cue per notification kind.
  - Reloads a rotated token file without a restart.
`

var exampleUsage = strings.TrimSpace(`
  livefeed --endpoint wss://api.example.com/ws --token-file ~/.livefeed/token
  livefeed --transport nats --endpoint nats://127.0.0.1:4222 --subject site.events
  livefeed --config $HOME/.livefeed/config.toml --audio none --log-file /tmp/livefeed.log
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envPath string

	bootLog := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "livefeed",
		Short:   "Follow a construction-management event feed as terminal notifications",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// LIVEFEED_* override the file and are overridden by flags.
			if err := cliconfig.LoadDotEnv(envPath); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, closer, err := cliconfig.NewLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			zl.Info().Interface("config", cfg.Masked()).Msg("configuration")
			return run(cmd.Context(), cfg, zl)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.livefeed/config.toml)")
	root.Flags().StringVar(&envPath, "env-file", ".env", "path to a .env file with LIVEFEED_* variables")

	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "event transport: websocket or nats")
	root.Flags().StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "ws(s):// or nats:// URL of the event feed")
	root.Flags().StringVar(&cfg.Subject, "subject", cfg.Subject, "NATS subject prefix (nats transport only)")
	root.Flags().StringVar(&cfg.Token, "token", cfg.Token, "bearer credential")
	root.Flags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "file holding the bearer credential, reloaded on change")

	root.Flags().DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "first reconnect delay")
	root.Flags().DurationVar(&cfg.BackoffCap, "backoff-cap", cfg.BackoffCap, "maximum reconnect delay")
	root.Flags().Float64Var(&cfg.BackoffJitter, "backoff-jitter", cfg.BackoffJitter, "fraction of each delay randomized away, within [0, 1]")
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout of a single connection attempt")
	root.Flags().IntVar(&cfg.MaxAuthFailures, "max-auth-failures", cfg.MaxAuthFailures, "consecutive rejected credentials before giving up (0 retries forever)")

	root.Flags().DurationVar(&cfg.DedupWindow, "dedup-window", cfg.DedupWindow, "window for suppressing equivalent notifications (0 disables)")
	root.Flags().DurationVar(&cfg.DefaultDuration, "default-duration", cfg.DefaultDuration, "display time of info, success and progress notifications")
	root.Flags().DurationVar(&cfg.WarningDuration, "warning-duration", cfg.WarningDuration, "display time of warnings")
	root.Flags().DurationVar(&cfg.ErrorDuration, "error-duration", cfg.ErrorDuration, "display time of errors")
	root.Flags().IntVar(&cfg.MaxVisible, "max-visible", cfg.MaxVisible, "maximum notifications kept (0 is unlimited)")

	root.Flags().StringVar(&cfg.Audio, "audio", cfg.Audio, "audio backend: bell, command or none")
	root.Flags().StringVar(&cfg.AudioCommand, "audio-command", cfg.AudioCommand, "player binary for the command backend, e.g. paplay")
	root.Flags().StringVar(&cfg.AudioDir, "audio-dir", cfg.AudioDir, "directory with <cue>.wav files for the command backend")
	root.Flags().StringVar(&cfg.AudioPriority, "audio-priority", cfg.AudioPriority, "lowest priority that plays a cue")

	root.Flags().BoolVar(&cfg.WatchTokenFile, "watch-token-file", cfg.WatchTokenFile, "reconnect when the token file changes")
	root.Flags().DurationVar(&cfg.TokenDebounce, "token-debounce", cfg.TokenDebounce, "delay before reloading a changed token file")
	if err := root.Flags().MarkHidden("token-debounce"); err != nil {
		bootLog.Info().Err(err).Msg("failed to hide token-debounce flag")
	}

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write JSON logs to a rotating file instead of stderr")
	root.Flags().BoolVar(&cfg.Tap, "tap", cfg.Tap, "log every raw event at debug level")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		bootLog.Error().Err(err).Msg("livefeed")
		stop()
		os.Exit(1)
	}
}

// run wires the pipeline to the terminal and blocks until ctx ends.
func run(ctx context.Context, cfg cliconfig.Config, zl zerolog.Logger) error {
	logger := log.NewZerologAdapterWithLogger(zl)

	opts := []livefeed.Option{
		livefeed.WithLogger(logger),
		livefeed.WithEventHandler(&connectionLogger{logger: logger}),
	}
	if player := newPlayer(cfg); player != nil {
		minimum, _ := notify.ParsePriority(cfg.AudioPriority)
		opts = append(opts, livefeed.WithCuePlayer(audio.NewAdapter(player,
			audio.WithLogger(log.With(logger, log.String("component", "audio"))),
			audio.WithMinPriority(minimum),
		)))
	}
	if cfg.TokenFile != "" && cfg.WatchTokenFile {
		twCfg := tokenwatcher.DefaultConfig()
		twCfg.DebounceDelay = cfg.TokenDebounce
		opts = append(opts, tokenwatcher.WithTokenWatcher(twCfg))
	}

	lf, err := livefeed.New(cfg.LibraryConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create livefeed: %w", err)
	}

	term := render.NewTerminal(os.Stdout)
	unsubscribe := lf.Registry().Subscribe(term.Render)
	defer unsubscribe()

	if cfg.Tap {
		tapLog := log.With(logger, log.String("component", "tap"))
		id := lf.Manager().AddEventListener(connection.AnyEvent, func(ev connection.Event) {
			tapLog.Debug("event",
				log.String("name", ev.Name),
				log.String("payload", string(ev.Payload)),
			)
		})
		defer lf.Manager().RemoveEventListener(connection.AnyEvent, id)
	}

	if err := lf.Start(ctx); err != nil {
		return fmt.Errorf("start livefeed: %w", err)
	}

	<-ctx.Done()
	logger.Info("received signal, stopping...")

	if err := lf.Stop(); err != nil {
		return fmt.Errorf("stop livefeed: %w", err)
	}
	return nil
}

// newPlayer returns the configured playback backend, or nil when muted.
func newPlayer(cfg cliconfig.Config) audio.Player {
	switch cfg.Audio {
	case cliconfig.AudioBell:
		return audio.NewBellPlayer(os.Stdout)
	case cliconfig.AudioCommand:
		return audio.CommandPlayer{Command: cfg.AudioCommand, Dir: cfg.AudioDir}
	default:
		return nil
	}
}

// connectionLogger logs connection transitions and credential problems.
type connectionLogger struct {
	livefeed.BaseEventHandler
	logger log.Logger
}

func (c *connectionLogger) OnConnectionChange(ev livefeed.ConnectionChangeEvent) {
	c.logger.Info("connection state changed",
		log.Stringer("from", ev.Previous),
		log.Stringer("to", ev.Current),
		log.String("reason", ev.Reason),
	)
}

func (c *connectionLogger) OnAuthFailure(ev livefeed.AuthFailureEvent) {
	c.logger.Warn("credential rejected",
		log.Err(ev.Error),
		log.Int("attempts", ev.Attempts),
	)
}
