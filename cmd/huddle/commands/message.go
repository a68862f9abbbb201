package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/pkg/activity"
)

var messageChannel string

var messageCmd = &cobra.Command{
	Use:   "message HOST_MESSAGE_ID",
	Short: "Register a chat message that sessions can attach to",
	Long: `Register a host message in the instance's message index.

In production the chat platform's bridge keeps this index current; the
command is for local development and tests.`,
	Args: cobra.ExactArgs(1),
	RunE: runMessage,
}

func init() {
	messageCmd.Flags().StringVar(&messageChannel, "channel", "", "Channel the message lives in (required)")
	_ = messageCmd.MarkFlagRequired("channel")
	rootCmd.AddCommand(messageCmd)
}

func runMessage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.PutHostMessage(ctx, &activity.HostMessage{ID: args[0], ChannelID: messageChannel}); err != nil {
		return printer.Error("failed to register message", err.Error(), nil)
	}
	printer.Success("Registered message %s in channel %s\n", args[0], messageChannel)
	return nil
}
