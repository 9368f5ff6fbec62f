package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a manual history entry",
		Long:  "Delete a manual archive entry. Summarized and layered entries cannot be deleted.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	entry := findEntry(sc, 0, args[0])
	if err := newEngine(idx).DeleteHistoryEntry(cmd.Context(), sc, entry); err != nil {
		exitErr("rm", err)
	}
	saveScene(sc)

	fmt.Printf(`{"ok":true,"deleted":%q,"ts":%q}`+"\n", entry.ID, sc.TS)
}
