package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Assemble relevant history for a prompt",
		Long: "Search and score memory records, then greedily pack them into a token budget. " +
			"With --scene, records closer to the current scene time score higher.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRecall,
	}

	cmd.Flags().StringP("typ", "t", "", "Filter by type")
	cmd.Flags().IntP("budget", "b", 2000, "Max tokens in output")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("typ")
	budget, _ := cmd.Flags().GetInt("budget")

	sceneTS := isoduration.Zero
	if scenePath != "" {
		sc, err := loadScene(false)
		if err != nil {
			exitErr("load scene", err)
		}
		sceneTS = sc.TS
	}

	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	result, err := idx.Recall(cmd.Context(), memory.RecallParams{
		Typ:     typ,
		Query:   strings.Join(args, " "),
		SceneTS: sceneTS,
		Budget:  budget,
		Count:   newCounter().Count,
	})
	if err != nil {
		exitErr("recall", err)
	}
	printJSON(result)
}
