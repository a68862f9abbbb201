package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/printer"
)

var closeCmd = &cobra.Command{
	Use:   "close SESSION_ID",
	Short: "Close a session",
	Long: `Close a session. Only its creator or a workspace admin may close it,
and a session closes exactly once; participants are notified.`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := apiClient()
	if err != nil {
		return err
	}
	sessionID, err := resolveForWrite(ctx, args[0])
	if err != nil {
		return err
	}

	session, err := client.CloseSession(ctx, sessionID)
	if err != nil {
		return printer.DomainError(err)
	}
	printer.Success("Closed %s session %s (version %d)\n", session.Type, session.ID, session.Version)
	return nil
}
