package cmd

import (
	"fmt"

	"github.com/josephlewis42/osh/core"
	"github.com/spf13/cobra"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the commands the shell runs without starting a process.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range core.BuiltinNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), core.RepeatCommand)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
