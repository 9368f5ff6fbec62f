package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/history"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sources <id>",
		Short: "Show what a history entry was summarized from",
		Args:  cobra.ExactArgs(1),
		Run:   runSources,
	}

	cmd.Flags().IntP("layer", "l", 0, "Layer of the entry")

	RootCmd.AddCommand(cmd)
}

func runSources(cmd *cobra.Command, args []string) {
	layer, _ := cmd.Flags().GetInt("layer")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	sources, err := history.CollectSourceEntries(sc, findEntry(sc, layer, args[0]))
	if err != nil {
		exitErr("sources", err)
	}

	if textOutput() {
		for _, s := range sources {
			fmt.Printf("[%d] %s: %s\n", s.Layer, s.ID, s.Text)
		}
		return
	}
	printJSON(sources)
}
