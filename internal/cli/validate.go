package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Repair history entry ids",
		Long: "Give every archive and layered entry a unique id. With --legacy, older layered " +
			"entries saved without ids also get their exclusive end index fixed.",
		Run: runValidate,
	}

	cmd.Flags().Bool("legacy", false, "Migrate layered entries saved before ids existed")
	cmd.Flags().Bool("commit", false, "Mirror the repaired archive into the memory index")

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	legacy, _ := cmd.Flags().GetBool("legacy")
	commit, _ := cmd.Flags().GetBool("commit")

	sc, err := loadScene(false)
	if err != nil {
		exitErr("load scene", err)
	}

	eng := newEngine(nil)
	if commit {
		idx, err := openIndex()
		if err != nil {
			exitErr("open index", err)
		}
		defer idx.Close()
		eng = newEngine(idx)
	}

	migrated := 0
	if legacy {
		migrated = eng.MigrateLegacyLayers(sc)
	}
	changed, err := eng.ValidateHistory(cmd.Context(), sc, commit)
	if err != nil {
		exitErr("validate", err)
	}
	if changed || migrated > 0 {
		saveScene(sc)
	}

	fmt.Printf(`{"ok":true,"changed":%t,"migrated":%d}`+"\n", changed, migrated)
}
