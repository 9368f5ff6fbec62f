package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the archive and layers from the transcript",
		Long:  "Discard every summarized entry and layer, keep manual entries, and summarize the whole transcript again.",
		Run:   runRebuild,
	}

	cmd.Flags().String("style", "", "Writing style for summaries")
	cmd.Flags().Bool("progress", false, "Print progress to stderr")

	RootCmd.AddCommand(cmd)
}

func runRebuild(cmd *cobra.Command, args []string) {
	style, _ := cmd.Flags().GetString("style")
	progress, _ := cmd.Flags().GetBool("progress")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	var extra []status.Emitter
	var bus *status.Bus
	done := make(chan struct{})
	if progress {
		bus = status.NewBus(64)
		extra = append(extra, bus)
		go printProgress(bus.Subscribe(), done)
	}

	err = newEngine(idx, extra...).RebuildHistory(cmd.Context(), sc, summarizer.GenerationOptions{WritingStyle: style})
	if bus != nil {
		bus.Close()
		<-done
	}
	saveScene(sc)
	if err != nil {
		exitErr("rebuild", err)
	}

	layers := make([]int, len(sc.LayeredHistory))
	for i, l := range sc.LayeredHistory {
		layers[i] = len(l)
	}
	printJSON(map[string]any{"archive_entries": len(sc.ArchivedHistory), "layers": layers, "ts": sc.TS})
}

func printProgress(events <-chan status.Event, done chan<- struct{}) {
	defer close(done)
	for evt := range events {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", evt.Status, evt.Message)
	}
}
