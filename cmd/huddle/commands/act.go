package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/pkg/activity"
)

var (
	actInput string
	actType  string
)

var actCmd = &cobra.Command{
	Use:   "act SESSION_ID ACTION",
	Short: "Perform an action on a session",
	Long: `Perform one action on a session through the server.

The session type is looked up unless --type is given. The input document
depends on the action; see "huddle types".

Examples:
  huddle act abc123 add_item --as bob --input '{"text":"budget review"}'
  huddle act abc123 vote --as bob --input @ballot.json`,
	Args: cobra.ExactArgs(2),
	RunE: runAct,
}

func init() {
	actCmd.Flags().StringVar(&actInput, "input", "", "Action input JSON (inline, @file or - for stdin)")
	actCmd.Flags().StringVar(&actType, "type", "", "Expected activity type (looked up when omitted)")
	rootCmd.AddCommand(actCmd)
}

func runAct(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	input, err := readJSONArg(actInput, cmd.InOrStdin())
	if err != nil {
		return printer.Error("invalid --input", err.Error(), nil)
	}
	client, err := apiClient()
	if err != nil {
		return err
	}
	sessionID, err := resolveForWrite(ctx, args[0])
	if err != nil {
		return err
	}

	kind := activity.Type(actType)
	if kind == "" {
		current, err := client.GetSession(ctx, sessionID)
		if err != nil {
			return printer.DomainError(err)
		}
		kind = current.Type
	}

	session, err := client.Dispatch(ctx, sessionID, kind, args[1], input)
	if err != nil {
		return printer.DomainError(err)
	}

	printer.Success("%s applied (version %d)\n", args[1], session.Version)
	return printSession(os.Stdout, session)
}
