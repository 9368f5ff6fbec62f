package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Compact the archive into layered history",
		Run:   runLayers,
	}

	cmd.Flags().String("style", "", "Writing style for summaries")

	RootCmd.AddCommand(cmd)
}

func runLayers(cmd *cobra.Command, args []string) {
	style, _ := cmd.Flags().GetString("style")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}

	err = newEngine(nil).SummarizeToLayeredHistory(cmd.Context(), sc, summarizer.GenerationOptions{WritingStyle: style})
	saveScene(sc)
	if err != nil {
		exitErr("layers", err)
	}

	layers := make([]int, len(sc.LayeredHistory))
	for i, l := range sc.LayeredHistory {
		layers[i] = len(l)
	}
	printJSON(map[string]any{"layers": layers})
}
