package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/history"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

func init() {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List the entries of one history layer",
		Long:  "List the entries of a layer with times relative to the scene. Layer 0 is the archive.",
		Run:   runEntries,
	}

	cmd.Flags().IntP("layer", "l", 0, "Layer to list")

	RootCmd.AddCommand(cmd)
}

func runEntries(cmd *cobra.Command, args []string) {
	layer, _ := cmd.Flags().GetInt("layer")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	entries, err := history.Entries(sc, layer)
	if err != nil {
		exitErr("entries", err)
	}

	if textOutput() {
		for _, e := range entries {
			printEntry(e)
		}
		return
	}
	printJSON(entries)
}

func printEntry(e model.HistoryEntry) {
	span := "manual"
	if e.Start != nil && e.End != nil {
		span = fmt.Sprintf("%d-%d", *e.Start, *e.End)
	}
	when := e.Time
	if e.TimeStart != "" && e.TimeStart != e.TimeEnd {
		when = e.TimeStart + " to " + e.TimeEnd
	}
	fmt.Printf("[%d:%d] %s (%s, %s)\n%s\n\n", e.Layer, e.Index, e.ID, span, when, e.Text)
}

// findEntry resolves the entry with id in layer.
func findEntry(sc *scene.Scene, layer int, id string) model.HistoryEntry {
	entry, err := history.FindEntry(sc, layer, id)
	if err != nil {
		exitErr("find entry", err)
	}
	return entry
}
