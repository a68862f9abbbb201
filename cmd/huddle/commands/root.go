package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	serverURL  string
	actorID    string
	actorName  string
	actorAdmin bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "huddle",
	Short: "Huddle - collaborative activities attached to chat messages",
	Long: `Huddle runs facilitation activities (polls, retros, estimation,
decision boards and more) attached to chat messages.

Read commands (list, get, watch) talk to the configured store directly.
Write commands (create, act, close) go through a running huddled server so
every change is versioned, broadcast and audited the same way.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("HUDDLE_CONFIG"), "Path to huddle.yml (env: HUDDLE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("HUDDLE_SERVER", "http://localhost:8080"), "huddled base URL for write commands (env: HUDDLE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&actorID, "as", os.Getenv("HUDDLE_ACTOR"), "Actor id to act as (env: HUDDLE_ACTOR)")
	rootCmd.PersistentFlags().StringVar(&actorName, "as-name", "", "Display name of the actor (defaults to the id)")
	rootCmd.PersistentFlags().BoolVar(&actorAdmin, "admin", false, "Act with the workspace admin role")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
