package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var respondersRefresh bool

var respondersCmd = &cobra.Command{
	Use:   "responders",
	Short: "Show the cached responder directory used for offline SMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		if respondersRefresh {
			if err := rt.Directory.Refresh(cmd.Context()); err != nil {
				fmt.Printf("refresh failed, showing cached snapshot: %v\n", err)
			}
		}

		snap := rt.Directory.Read()
		if jsonOutput {
			return printJSON(snap)
		}
		if snap.FetchedAt.IsZero() {
			fmt.Println("No responder directory cached yet.")
			return nil
		}
		fmt.Printf("%d responder(s), fetched %s\n", len(snap.PhoneNumbers), snap.FetchedAt.Local().Format("2006-01-02 15:04:05"))
		for _, n := range snap.PhoneNumbers {
			fmt.Println("  " + n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(respondersCmd)
	respondersCmd.Flags().BoolVar(&respondersRefresh, "refresh", false, "fetch the directory from the server first")
}
