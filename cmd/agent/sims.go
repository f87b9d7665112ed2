package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var simsCmd = &cobra.Command{
	Use:   "sims",
	Short: "List SIM slots available for SMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		if err := rt.SMS.Modem.RequestPermission(cmd.Context()); err != nil {
			return err
		}
		sims, err := rt.SMS.Modem.SIMs(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sims)
		}
		if len(sims) == 0 {
			fmt.Println("No SIM cards found.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tSUBSCRIPTION\tCARRIER")
		for _, s := range sims {
			fmt.Fprintf(w, "%d\t%d\t%s\n", s.Slot, s.SubscriptionID, s.Carrier)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(simsCmd)
}
