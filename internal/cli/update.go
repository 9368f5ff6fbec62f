package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <id> [text]",
		Short: "Replace the text of a history entry",
		Long:  "Replace the text of an entry in any layer. Text can follow the id or be piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().IntP("layer", "l", 0, "Layer of the entry")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	layer, _ := cmd.Flags().GetInt("layer")

	text := readContent(args[1:])
	if text == "" {
		exitErr("update", fmt.Errorf("text is required"))
	}

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
	entry.Text = text
	if err := newEngine(idx).UpdateHistoryEntry(cmd.Context(), sc, entry); err != nil {
		exitErr("update", err)
	}
	saveScene(sc)
	printJSON(findEntry(sc, layer, args[0]))
}
