package main

import (
	"fmt"

	"rescue-alert-service/internal/agent/netmon"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued offline alerts now",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if rt.probe(ctx) != netmon.Connected {
			return fmt.Errorf("server unreachable, %s stays queued", pendingSummary(rt))
		}
		_ = rt.Directory.Refresh(ctx)

		res, err := rt.Syncer.Sync(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("Committed %d, failed %d, replayed %d, media failures %d\n",
			res.Committed, res.Failed, res.Replayed, res.MediaFailures)
		return nil
	},
}

func pendingSummary(rt *agentRuntime) string {
	n, err := rt.Queue.Len()
	if err != nil {
		return "the queue"
	}
	return fmt.Sprintf("%d record(s)", n)
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
