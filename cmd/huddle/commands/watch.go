package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/config"
	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/internal/watch"
	"github.com/dyluth/huddle/pkg/activity"
)

var (
	watchOutputFormat string
	watchChannel      string
	watchSession      string
	watchUntilClosed  bool
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live session snapshots",
	Long: `Stream the snapshots broadcast after every committed change.

Every snapshot is the full session state, so a missed one is repaired by the
next. Snapshots are delivered over Redis Pub/Sub regardless of store.driver.

Output Formats:
  default - Human-readable line per snapshot
  jsonl   - Line-delimited JSON snapshots

Examples:
  # Everything on the instance
  huddle watch

  # One channel, as JSON
  huddle watch --channel=general -o jsonl

  # Follow one session until it closes
  huddle watch --session=abc123 --until-closed

  # Block until a session closes without streaming (e.g. in scripts)
  huddle watch --session=abc123 --until-closed --timeout=10m -o quiet`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default, jsonl or quiet")
	watchCmd.Flags().StringVar(&watchChannel, "channel", "", "Channel to follow (all channels if omitted)")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Only show this session (short ids accepted)")
	watchCmd.Flags().BoolVar(&watchUntilClosed, "until-closed", false, "Exit once the --session closes")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Give up after this long (0 = never)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var format watch.OutputFormat
	quiet := false
	switch watchOutputFormat {
	case "default":
		format = watch.OutputFormatDefault
	case "jsonl":
		format = watch.OutputFormatJSONL
	case "quiet":
		quiet = true
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl, quiet"},
		)
	}
	if (watchUntilClosed || quiet) && watchSession == "" {
		return printer.Error("missing --session", "--until-closed and -o quiet follow a single session.", []string{"Pass --session <id>"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if watchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchTimeout)
		defer cancel()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	// Session state lives in the configured store even though snapshots
	// always travel over Redis.
	var store sessionStore = client
	if cfg.Store.Driver == config.DriverSQLite && watchSession != "" {
		if store, err = openStore(ctx, cfg); err != nil {
			return err
		}
		defer store.Close()
	}

	sessionID := ""
	channel := watchChannel
	if watchSession != "" {
		if sessionID, err = resolveSessionID(ctx, store, watchSession); err != nil {
			return err
		}
	}

	if quiet {
		timeout := watchTimeout
		if timeout == 0 {
			timeout = 365 * 24 * time.Hour
		}
		printer.Step("Waiting for session %s to close...\n", sessionID)
		s, err := watch.PollForClose(ctx, store, sessionID, timeout)
		if err != nil {
			return printer.Error("session did not close", err.Error(), nil)
		}
		printer.Success("Session %s closed by %s at version %d\n", s.ID, s.ClosedBy, s.Version)
		return nil
	}

	if channel == "" {
		channel = activity.AllChannels
	}
	if format == watch.OutputFormatDefault {
		printer.Info("Watching instance '%s' (Ctrl+C to stop)...\n", cfg.InstanceName)
	}
	err = watch.Stream(ctx, client, watch.Options{
		Channel:     channel,
		SessionID:   sessionID,
		ExitOnClose: watchUntilClosed,
		OnError: func(err error) {
			printer.Warning("%v\n", err)
		},
	}, format, os.Stdout)
	if err != nil {
		return printer.Error("watch failed", err.Error(), nil)
	}
	return nil
}
