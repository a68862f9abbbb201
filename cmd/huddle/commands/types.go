package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/huddle/internal/variant"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List activity types and their actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeTypes(os.Stdout, variant.Builtin())
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func writeTypes(w io.Writer, registry *variant.Registry) error {
	for _, t := range registry.Types() {
		h, err := registry.Resolve(t)
		if err != nil {
			return err
		}
		var actions []string
		for _, a := range h.Actions() {
			if h.Closes(a) {
				a += "*"
			}
			actions = append(actions, a)
		}
		if _, err := fmt.Fprintf(w, "%-20s %s\n", t, strings.Join(actions, ", ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "\n* closes the session")
	return err
}
