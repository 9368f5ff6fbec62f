package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/summarizer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Summarize a history entry again from its sources",
		Args:  cobra.ExactArgs(1),
		Run:   runRegenerate,
	}

	cmd.Flags().IntP("layer", "l", 0, "Layer of the entry")
	cmd.Flags().String("style", "", "Writing style for the summary")
	cmd.Flags().String("instructions", "", "Extra instructions for the summary")

	RootCmd.AddCommand(cmd)
}

func runRegenerate(cmd *cobra.Command, args []string) {
	layer, _ := cmd.Flags().GetInt("layer")
	style, _ := cmd.Flags().GetString("style")
	instructions, _ := cmd.Flags().GetString("instructions")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	entry := findEntry(sc, layer, args[0])
	out, err := newEngine(idx).RegenerateHistoryEntry(cmd.Context(), sc, entry,
		summarizer.GenerationOptions{WritingStyle: style, Instructions: instructions})
	if err != nil {
		exitErr("regenerate", err)
	}
	saveScene(sc)
	printJSON(out)
}
