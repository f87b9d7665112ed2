package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type pendingRow struct {
	Key         string `json:"key"`
	BuildingID  string `json:"building_id"`
	EnqueuedAt  string `json:"enqueued_at"`
	Description string `json:"description"`
	Media       int    `json:"media"`
	Error       string `json:"error,omitempty"`
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List alerts waiting in the offline queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}

		rows := []pendingRow{}
		for rec, err := range rt.Queue.ListPending() {
			row := pendingRow{
				Key:         rec.Key.String(),
				BuildingID:  rec.BuildingID,
				EnqueuedAt:  time.UnixMilli(rec.Key.EnqueuedAt).Format(time.RFC3339),
				Description: rec.Description,
				Media:       len(rec.Media),
			}
			if err != nil {
				row.Error = err.Error()
			}
			rows = append(rows, row)
		}

		if jsonOutput {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Println("No pending alerts.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tBUILDING\tQUEUED AT\tMEDIA\tDESCRIPTION")
		for _, r := range rows {
			desc := r.Description
			if r.Error != "" {
				desc = "unreadable: " + r.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.Key, r.BuildingID, r.EnqueuedAt, r.Media, desc)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}
