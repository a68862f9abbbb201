package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/listing"
	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/internal/timespec"
)

var (
	listOutputFormat string
	listSince        string
	listUntil        string
	listType         string
	listCreatedBy    string
	listChannel      string
	listState        string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with filtering",
	Long: `List the sessions of the configured instance, oldest first.

Output Formats:
  default - Human-readable table with a payload summary
  jsonl   - Line-delimited JSON, one session per line

Examples:
  # Everything
  huddle list

  # Open retros from the last two days
  huddle list --type='*-board' --state=open --since=2d

  # Pipe to jq
  huddle list -o jsonl --channel=general | jq '.payload'`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show sessions created after time (duration, date or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Show sessions created before time (duration, date or RFC3339)")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by activity type (glob pattern)")
	listCmd.Flags().StringVar(&listCreatedBy, "by", "", "Filter by creator actor id")
	listCmd.Flags().StringVar(&listChannel, "channel", "", "Filter by channel")
	listCmd.Flags().StringVar(&listState, "state", "", "Filter by state: open or closed")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var format listing.OutputFormat
	switch listOutputFormat {
	case "default":
		format = listing.OutputFormatDefault
	case "jsonl":
		format = listing.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	sinceMs, untilMs, err := timespec.ParseRange(listSince, listUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), []string{"Examples: --since=2h, --since=3d, --until=2026-10-01"})
	}
	state, err := listing.ParseState(listState)
	if err != nil {
		return printer.Error("invalid state filter", err.Error(), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	criteria := &listing.Criteria{
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		TypeGlob:         listType,
		CreatedBy:        listCreatedBy,
		Channel:          listChannel,
		State:            state,
	}
	return listing.List(ctx, store, cfg.InstanceName, format, criteria, os.Stdout)
}
