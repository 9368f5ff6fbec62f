package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reimport",
		Short: "Replace the indexed history with the scene's archive",
		Run:   runReimport,
	}

	RootCmd.AddCommand(cmd)
}

func runReimport(cmd *cobra.Command, args []string) {
	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}
	idx, err := openIndex()
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	if err := newEngine(idx).ReimportHistory(cmd.Context(), sc); err != nil {
		exitErr("reimport", err)
	}
	saveScene(sc)

	fmt.Printf(`{"ok":true,"entries":%d}`+"\n", len(sc.ArchivedHistory))
}
