package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"rescue-alert-service/internal/agent/engine"
	"rescue-alert-service/internal/agent/media"

	"github.com/spf13/cobra"
)

var (
	raiseBuilding    string
	raiseDescription string
	raiseMedia       []string
)

var raiseCmd = &cobra.Command{
	Use:   "raise",
	Short: "Raise an emergency alert",
	Long: `Raise an emergency alert for a building. Online the alert is committed and responders are
notified; offline it is queued on the device and broadcast to the cached responder numbers by SMS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		building := raiseBuilding
		if building == "" {
			building = rt.Settings.DefaultBuilding
		}
		blobs, err := readBlobs(raiseMedia)
		if err != nil {
			return err
		}

		rt.probe(ctx)
		res, err := rt.Engine.Raise(ctx, engine.RaiseRequest{
			BuildingID:  building,
			Description: raiseDescription,
			Media:       blobs,
		}, &engine.TerminalProgress{W: os.Stderr})
		if err != nil {
			return err
		}
		return printRaise(res)
	},
}

func printRaise(res engine.RaiseResult) error {
	if jsonOutput {
		return printJSON(res)
	}
	switch res.Mode {
	case engine.ModeOnline:
		fmt.Printf("Alert #%d sent for building #%s (%d media)\n", res.Alert.ID, res.Alert.BuildingID, len(res.Alert.MediaRefs))
	case engine.ModeOffline:
		fmt.Printf("Alert queued as %s; SMS sent %d, failed %d\n", res.QueueKey, res.SMS.Sent(), res.SMS.Failed())
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

// readBlobs loads attachment files into memory.
func readBlobs(paths []string) ([]media.Blob, error) {
	blobs := make([]media.Blob, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		blobs = append(blobs, media.Blob{
			Name:         filepath.Base(p),
			MimeType:     mimeType,
			LastModified: info.ModTime().UnixMilli(),
			Data:         data,
		})
	}
	return blobs, nil
}

func init() {
	rootCmd.AddCommand(raiseCmd)
	raiseCmd.Flags().StringVarP(&raiseBuilding, "building", "b", "", "building id (default from config)")
	raiseCmd.Flags().StringVarP(&raiseDescription, "description", "d", "", "what is happening")
	raiseCmd.Flags().StringArrayVarP(&raiseMedia, "media", "m", nil, "photo or video to attach (repeatable)")
}

