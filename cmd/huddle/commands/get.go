package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/listing"
	"github.com/dyluth/huddle/internal/printer"
)

var getCmd = &cobra.Command{
	Use:   "get SESSION_ID",
	Short: "Show one session as pretty-printed JSON",
	Long: `Show the complete stored state of one session.

Short IDs are accepted (e.g. "abc123" instead of the full UUID) as long as
they match exactly one session.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := resolveSessionID(ctx, store, args[0])
	if err != nil {
		return err
	}
	if err := listing.Get(ctx, store, id, os.Stdout); err != nil {
		return printer.DomainError(err)
	}
	return nil
}
