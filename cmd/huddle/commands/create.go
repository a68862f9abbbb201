package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/pkg/activity"
)

var createSetup string

var createCmd = &cobra.Command{
	Use:   "create TYPE HOST_MESSAGE_ID",
	Short: "Start an activity on a chat message",
	Long: `Start a session of TYPE attached to a registered host message.

The setup document depends on the type; see "huddle types".

Examples:
  huddle create poll msg-1 --as alice \
    --setup '{"question":"Lunch?","options":["pizza","sushi"]}'

  huddle create parking-lot msg-2 --as alice`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createSetup, "setup", "", "Setup JSON (inline, @file or - for stdin)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind := activity.Type(args[0])
	if err := kind.Validate(); err != nil {
		return printer.DomainError(activity.Errorf(activity.CodeUnknownActivityType, "%v", err))
	}
	setup, err := readJSONArg(createSetup, cmd.InOrStdin())
	if err != nil {
		return printer.Error("invalid --setup", err.Error(), nil)
	}

	client, err := apiClient()
	if err != nil {
		return err
	}
	session, err := client.CreateSession(ctx, args[1], kind, setup)
	if err != nil {
		return printer.DomainError(err)
	}

	printer.Success("Created %s session %s (version %d)\n", session.Type, session.ID, session.Version)
	return printSession(os.Stdout, session)
}
