package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a manual history entry",
		Long: "Add a hand-written archive entry that happened --offset before the current scene time. " +
			"It must pre-date every summarized entry. Text can be a positional arg or piped via stdin.",
		Run: runAdd,
	}

	cmd.Flags().StringP("offset", "o", "", "How long ago it happened, as an ISO-8601 duration (required)")
	cmd.MarkFlagRequired("offset")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	offset, _ := cmd.Flags().GetString("offset")

	text := readContent(args)
	if text == "" {
		exitErr("add", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	sc, err := loadScene(true)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	entry, err := newEngine(idx).AddHistoryEntry(cmd.Context(), sc, text, offset)
	if err != nil {
		exitErr("add", err)
	}
	saveScene(sc)
	printJSON(entry)
}
