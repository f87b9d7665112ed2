package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve an alert (responders only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid alert id %q", args[0])
		}
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		rt.probe(cmd.Context())

		alert, err := rt.Engine.Resolve(cmd.Context(), uint(id))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(alert)
		}
		fmt.Printf("Emergency #%d resolved successfully\n", alert.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
