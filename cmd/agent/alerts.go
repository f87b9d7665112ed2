package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"rescue-alert-service/internal/agent/apiclient"

	"github.com/spf13/cobra"
)

var alertsHistory bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show unresolved alerts, or resolved ones with --history",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}

		var list []apiclient.Alert
		if alertsHistory {
			list, err = rt.API.History(cmd.Context())
		} else {
			list, err = rt.API.ActiveAlerts(cmd.Context())
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		printAlerts(list)
		return nil
	},
}

func printAlerts(list []apiclient.Alert) {
	if len(list) == 0 {
		fmt.Println("No alerts.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBUILDING\tSENDER\tCREATED\tMEDIA\tRESOLVED")
	for _, a := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%t\n", a.ID, a.BuildingID, a.SenderName,
			a.CreatedAt.Local().Format("2006-01-02 15:04"), len(a.MediaRefs), a.IsResolved)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().BoolVar(&alertsHistory, "history", false, "show resolved alerts")
}
