package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/history"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory database and scene statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type sceneStats struct {
	Messages       int    `json:"messages"`
	ArchiveEntries int    `json:"archive_entries"`
	ManualEntries  int    `json:"manual_entries"`
	LayerSizes     []int  `json:"layer_sizes"`
	SceneTime      string `json:"scene_time"`
}

func runStats(cmd *cobra.Command, args []string) {
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	stats, err := idx.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	out := map[string]any{"memory": stats}
	if scenePath != "" {
		sc, err := loadScene(false)
		if err != nil {
			exitErr("load scene", err)
		}
		ss := sceneStats{Messages: len(sc.History), ArchiveEntries: len(sc.ArchivedHistory), SceneTime: sc.TS}
		for _, a := range sc.ArchivedHistory {
			if a.IsManual() {
				ss.ManualEntries++
			}
		}
		for l := 1; l < history.Layers(sc); l++ {
			ss.LayerSizes = append(ss.LayerSizes, len(sc.LayeredHistory[l-1]))
		}
		out["scene"] = ss
	}

	if textOutput() {
		fmt.Printf("database: %s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
		fmt.Printf("records:  %s in %s chunks\n", humanize.Comma(int64(stats.Total)), humanize.Comma(int64(stats.TotalChunks)))
		for _, t := range stats.Types {
			fmt.Printf("  %-8s %d\n", t.Typ, t.Count)
		}
		if ss, ok := out["scene"].(sceneStats); ok {
			fmt.Printf("scene:    %d messages, %d archive entries (%d manual), layers %v, time %s\n",
				ss.Messages, ss.ArchiveEntries, ss.ManualEntries, ss.LayerSizes, ss.SceneTime)
		}
		return
	}
	printJSON(out)
}
