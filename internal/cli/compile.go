package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/story-history/internal/history"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the compiled multi-layer history",
		Long:  "Flatten the layers, coarsest first, into the chronological history handed to prompts.",
		Run:   runCompile,
	}

	cmd.Flags().Int("for-layer", -1, "Only walk layered lists at or above this index")
	cmd.Flags().Int("max", -1, "Stop at the first entry whose end reaches this index")
	cmd.Flags().Bool("base", true, "Include archive entries not yet covered by a layer")

	RootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) {
	forLayer, _ := cmd.Flags().GetInt("for-layer")
	maxEnd, _ := cmd.Flags().GetInt("max")
	base, _ := cmd.Flags().GetBool("base")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}

	opts := history.CompileOptions{IncludeBaseLayer: base}
	if forLayer >= 0 {
		opts.ForLayerIndex = &forLayer
	}
	if maxEnd >= 0 {
		opts.Max = &maxEnd
	}
	compiled := newEngine(nil).CompileLayeredHistory(sc, opts)

	if textOutput() {
		for _, c := range compiled {
			fmt.Printf("%s\n\n", c.Text)
		}
		return
	}
	printJSON(compiled)
}
